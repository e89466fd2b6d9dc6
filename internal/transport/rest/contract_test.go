package rest_test

import (
	"context"
	"net/http"
	"strings"

	"github.com/frahmantamala/grievance-management/internal/auth"
	"github.com/frahmantamala/grievance-management/internal/comment"
	"github.com/frahmantamala/grievance-management/internal/department"
	"github.com/frahmantamala/grievance-management/internal/grievance"
	"github.com/frahmantamala/grievance-management/internal/transport"
	"github.com/frahmantamala/grievance-management/internal/transport/rest"
	"github.com/frahmantamala/grievance-management/internal/transport/swagger"
	"github.com/frahmantamala/grievance-management/internal/user"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const apiPrefix = "/api/v1"

var _ = Describe("API contract", func() {
	It("documents every mounted API route", func() {
		spec, err := swagger.Load(context.Background(), "../../../api/openapi.yml")
		Expect(err).NotTo(HaveOccurred())

		base := transport.NewBaseHandler(slogger)
		router := chi.NewRouter()
		// handlers are only mounted, never invoked
		rest.RegisterAllRoutes(router, rest.Options{
			Health:      rest.NewHealthHandler(nil),
			Auth:        auth.NewHandler(base, nil),
			Users:       user.NewHandler(base, nil),
			Departments: department.NewHandler(base, nil),
			Grievances:  grievance.NewHandler(base, nil),
			Comments:    comment.NewHandler(base, nil),
			Logger:      slogger,
		})

		var routes []string
		err = chi.Walk(router, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
			if !strings.HasPrefix(route, apiPrefix) {
				return nil
			}
			path := strings.TrimPrefix(route, apiPrefix)
			if len(path) > 1 {
				path = strings.TrimSuffix(path, "/")
			}
			routes = append(routes, method+" "+path)
			Expect(spec.HasOperation(method, path)).To(BeTrue(), "undocumented route %s %s", method, path)
			return nil
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(routes).To(ContainElements(
			"POST /grievances",
			"POST /grievances/assign",
			"POST /grievances/{id}/resolve",
			"GET /comments/grievance/{id}",
			"PATCH /users/{id}/role",
		))
	})
})
