package app

import (
	"net/http"

	assessmenthandler "qualify/internal/assessment/handler"
	governancehandler "qualify/internal/governance/handler"
	matrixhandler "qualify/internal/matrix/handler"
	"qualify/internal/platform/metrics"
	"qualify/internal/ratelimit"
	recordshandler "qualify/internal/records/handler"
	traininghandler "qualify/internal/training/handler"
	httptransport "qualify/internal/transport/http"
)

// Router returns the full HTTP surface over the wired services.
func (a *App) Router() http.Handler {
	login := ratelimit.Policy{
		Limit:  a.Config.RateLimit.LoginLimit,
		Window: a.Config.RateLimit.LoginWindow,
	}
	return httptransport.NewRouter(httptransport.Deps{
		Logger:         a.Logger,
		TokenValidator: a.Tokens,
		Token:          httptransport.NewTokenHandler(a.Users, a.Tokens, a.Config.Auth.TokenTTL, a.Logger),
		LoginLimit:     a.Limiter.Middleware("login", login),
		Audit:          httptransport.NewAuditHandler(a.AuditStore, a.Logger),
		Modules: []httptransport.Registrar{
			recordshandler.New(a.Records, a.Logger),
			traininghandler.New(a.Trainings, a.Logger),
			assessmenthandler.New(a.Assessments, a.Logger),
			governancehandler.New(a.Governance, a.Logger),
			matrixhandler.New(a.Matrix, a.Logger),
		},
		Metrics:      metrics.Handler(a.Registry),
		MetricsToken: a.Config.Server.MetricsToken,
	})
}
