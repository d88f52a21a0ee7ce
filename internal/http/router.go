package http

import (
	"log/slog"
	"net/http"
	"time"

	"placementcell/internal/common"
	"placementcell/internal/domain/user"
	"placementcell/internal/http/handlers"
	"placementcell/internal/http/metrics"
	httpmw "placementcell/internal/http/middleware"
	"placementcell/internal/http/response"
)

type RouterDependencies struct {
	AuthHandler         *handlers.AuthHandler
	UserHandler         *handlers.UserHandler
	StudentHandler      *handlers.StudentHandler
	CompanyHandler      *handlers.CompanyHandler
	JobHandler          *handlers.JobHandler
	ApplicationHandler  *handlers.ApplicationHandler
	InterviewHandler    *handlers.InterviewHandler
	AnnouncementHandler *handlers.AnnouncementHandler
	NotificationHandler *handlers.NotificationHandler
	ReportHandler       *handlers.ReportHandler
	AuthMiddleware      *httpmw.AuthMiddleware
	Limiter             httpmw.Limiter
	ClientIP            httpmw.ClientIPFunc
	Metrics             *metrics.Collector
	Logger              *slog.Logger
	RequestTimeout      time.Duration
	MaxUploadBytes      int64
}

type Router struct {
	deps    RouterDependencies
	handler http.Handler
}

const (
	maxBodyBytes = 1 << 20
	// multipart framing on top of the file itself
	uploadOverhead = 64 << 10
)

func NewRouter(deps RouterDependencies) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.ClientIP == nil {
		deps.ClientIP = httpmw.ClientIP
	}
	r := &Router{deps: deps}
	r.handler = httpmw.Chain(r.routes(), httpmw.RequestID, httpmw.Logging(deps.Logger), httpmw.Recover(deps.Logger), httpmw.Metrics(deps.Metrics), httpmw.Timeout(deps.RequestTimeout))
	return r
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.handler.ServeHTTP(w, req)
}

type access int

const (
	public access = iota
	authenticated
	staffOnly
	adminOnly
	studentOnly
)

func (r *Router) routes() http.Handler {
	d := r.deps
	mux := http.NewServeMux()

	handle := func(pattern string, level access, h http.HandlerFunc) {
		mux.Handle(pattern, r.guard(level, httpmw.BodyLimit(maxBodyBytes)(h)))
	}
	upload := func(pattern string, level access, h http.HandlerFunc) {
		mux.Handle(pattern, r.guard(level, httpmw.BodyLimit(d.MaxUploadBytes+uploadOverhead)(h)))
	}
	perIP := func(prefix string) func(*http.Request) string {
		return func(req *http.Request) string {
			return prefix + d.ClientIP(req)
		}
	}

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", metrics.NewHandler(d.Metrics))

	handle("POST /auth/login", public, d.AuthHandler.Login)
	mux.Handle("POST /auth/register", httpmw.RateLimit(d.Limiter, perIP("register:ip:"), 10, time.Minute)(httpmw.BodyLimit(maxBodyBytes)(http.HandlerFunc(d.AuthHandler.Register))))
	mux.Handle("POST /auth/refresh", httpmw.RateLimit(d.Limiter, perIP("refresh:ip:"), 30, time.Minute)(httpmw.BodyLimit(maxBodyBytes)(http.HandlerFunc(d.AuthHandler.Refresh))))
	handle("POST /auth/logout", public, d.AuthHandler.Logout)
	handle("GET /auth/me", authenticated, d.AuthHandler.Me)
	handle("POST /auth/change-password", authenticated, d.AuthHandler.ChangePassword)
	handle("GET /auth/google/login", public, d.AuthHandler.GoogleLogin)
	handle("GET /auth/google/callback", public, d.AuthHandler.GoogleCallback)

	handle("GET /users", adminOnly, d.UserHandler.List)
	handle("POST /users", adminOnly, d.UserHandler.Create)
	handle("GET /users/{id}", authenticated, d.UserHandler.Get)
	handle("PATCH /users/{id}", adminOnly, d.UserHandler.Update)
	handle("DELETE /users/{id}", adminOnly, d.UserHandler.Deactivate)
	handle("GET /departments", authenticated, d.UserHandler.ListDepartments)
	handle("POST /departments", adminOnly, d.UserHandler.CreateDepartment)

	handle("GET /students", staffOnly, d.StudentHandler.List)
	handle("POST /students", staffOnly, d.StudentHandler.Create)
	upload("POST /students/bulk", staffOnly, d.StudentHandler.Import)
	handle("GET /students/me", studentOnly, d.StudentHandler.GetSelf)
	handle("PUT /students/me", studentOnly, d.StudentHandler.UpdateSelf)
	upload("POST /students/me/resume", studentOnly, d.StudentHandler.UploadResume)
	handle("GET /students/{id}", authenticated, d.StudentHandler.Get)
	handle("PUT /students/{id}", staffOnly, d.StudentHandler.Update)
	handle("DELETE /students/{id}", staffOnly, d.StudentHandler.Delete)
	handle("GET /students/{id}/resume", authenticated, d.StudentHandler.Resume)
	handle("GET /students/{id}/applications", authenticated, d.StudentHandler.Applications)

	handle("GET /companies", authenticated, d.CompanyHandler.List)
	handle("POST /companies", staffOnly, d.CompanyHandler.Create)
	handle("GET /companies/{id}", authenticated, d.CompanyHandler.Get)
	handle("PUT /companies/{id}", staffOnly, d.CompanyHandler.Update)
	handle("DELETE /companies/{id}", staffOnly, d.CompanyHandler.Delete)
	handle("GET /companies/{id}/jobs", authenticated, d.CompanyHandler.Jobs)
	upload("POST /companies/{id}/logo", staffOnly, d.CompanyHandler.UploadLogo)
	handle("GET /companies/{id}/logo", public, d.CompanyHandler.Logo)

	handle("GET /jobs", authenticated, d.JobHandler.List)
	handle("POST /jobs", staffOnly, d.JobHandler.Create)
	handle("GET /jobs/{id}", authenticated, d.JobHandler.Get)
	handle("PUT /jobs/{id}", staffOnly, d.JobHandler.Update)
	handle("DELETE /jobs/{id}", staffOnly, d.JobHandler.Delete)
	handle("PATCH /jobs/{id}/status", staffOnly, d.JobHandler.UpdateStatus)
	handle("GET /jobs/{id}/eligibility", studentOnly, d.JobHandler.Eligibility)
	handle("GET /jobs/{id}/applications", staffOnly, d.JobHandler.Applications)
	handle("GET /jobs/{id}/eligible-students", staffOnly, d.JobHandler.EligibleStudents)

	handle("POST /applications", studentOnly, d.ApplicationHandler.Apply)
	handle("GET /applications", authenticated, d.ApplicationHandler.List)
	handle("PATCH /applications/bulk-status", staffOnly, d.ApplicationHandler.BulkUpdateStatus)
	handle("GET /applications/{id}", authenticated, d.ApplicationHandler.Get)
	handle("PATCH /applications/{id}/status", staffOnly, d.ApplicationHandler.UpdateStatus)
	handle("POST /applications/{id}/withdraw", studentOnly, d.ApplicationHandler.Withdraw)

	handle("POST /interviews", staffOnly, d.InterviewHandler.Schedule)
	handle("GET /interviews", authenticated, d.InterviewHandler.List)
	handle("GET /interviews/{id}", authenticated, d.InterviewHandler.Get)
	handle("PUT /interviews/{id}", staffOnly, d.InterviewHandler.Reschedule)
	handle("PATCH /interviews/{id}/status", staffOnly, d.InterviewHandler.UpdateStatus)

	handle("GET /announcements", authenticated, d.AnnouncementHandler.List)
	handle("POST /announcements", staffOnly, d.AnnouncementHandler.Create)
	handle("GET /announcements/{id}", authenticated, d.AnnouncementHandler.Get)
	handle("PUT /announcements/{id}", staffOnly, d.AnnouncementHandler.Update)
	handle("DELETE /announcements/{id}", staffOnly, d.AnnouncementHandler.Delete)
	upload("POST /announcements/{id}/attachment", staffOnly, d.AnnouncementHandler.UploadAttachment)
	handle("GET /announcements/{id}/attachment", authenticated, d.AnnouncementHandler.Attachment)

	handle("GET /notifications", authenticated, d.NotificationHandler.List)
	handle("GET /notifications/unread-count", authenticated, d.NotificationHandler.UnreadCount)
	handle("PATCH /notifications/{id}/read", authenticated, d.NotificationHandler.MarkRead)
	handle("POST /notifications/read-all", authenticated, d.NotificationHandler.MarkAllRead)

	handle("GET /analytics/dashboard", staffOnly, d.ReportHandler.Dashboard)
	handle("GET /analytics/departments", staffOnly, d.ReportHandler.Departments)
	handle("GET /analytics/companies", staffOnly, d.ReportHandler.Companies)
	handle("GET /search", authenticated, d.ReportHandler.Search)
	handle("GET /export/students", staffOnly, d.ReportHandler.ExportStudents)
	handle("GET /export/applications", staffOnly, d.ReportHandler.ExportApplications)
	handle("GET /export/placements", staffOnly, d.ReportHandler.ExportPlacements)

	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, common.NewError(common.CodeNotFound, "route not found", nil))
	})
	return mux
}

func (r *Router) guard(level access, h http.Handler) http.Handler {
	switch level {
	case authenticated:
		return r.deps.AuthMiddleware.Authenticate(h)
	case staffOnly:
		return r.deps.AuthMiddleware.Authenticate(httpmw.RequireRole(user.StaffRoles...)(h))
	case adminOnly:
		return r.deps.AuthMiddleware.Authenticate(httpmw.RequireRole(user.RoleAdmin)(h))
	case studentOnly:
		return r.deps.AuthMiddleware.Authenticate(httpmw.RequireRole(user.RoleStudent)(h))
	default:
		return h
	}
}
