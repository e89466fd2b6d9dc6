package auth_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/frahmantamala/grievance-management/internal/auth"
	userDatamodel "github.com/frahmantamala/grievance-management/internal/core/datamodel/user"
	"github.com/frahmantamala/grievance-management/internal/core/role"
	"github.com/frahmantamala/grievance-management/internal/transport"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Auth Handler", func() {
	var (
		repo    *mockUserRepository
		gen     *auth.JWTTokenGenerator
		handler *auth.Handler
		admin   *userDatamodel.User
	)

	BeforeEach(func() {
		hash, err := auth.HashPassword("correct_password", 4)
		Expect(err).NotTo(HaveOccurred())

		dept := int64(7)
		admin = &userDatamodel.User{ID: 5, Email: "admin@example.com", PasswordHash: hash, Role: role.Admin, DepartmentID: &dept, IsActive: true}
		repo = newMockUserRepository(admin)
		gen = auth.NewJWTTokenGenerator(accessSecret, refreshSecret, time.Minute, time.Hour)
		handler = auth.NewHandler(transport.NewBaseHandler(quietLogger()), auth.NewService(repo, gen, quietLogger()))
	})

	bearer := func(u *userDatamodel.User) string {
		token, err := gen.GenerateAccessToken(auth.ActorFromDataModel(u))
		Expect(err).NotTo(HaveOccurred())
		return "Bearer " + token
	}

	Describe("Login", func() {
		It("returns tokens as JSON", func() {
			body, _ := json.Marshal(auth.LoginDTO{Email: "admin@example.com", Password: "correct_password"})
			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
			w := httptest.NewRecorder()

			handler.Login(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
			var tokens auth.AuthTokens
			Expect(json.NewDecoder(w.Body).Decode(&tokens)).To(Succeed())
			Expect(tokens.AccessToken).NotTo(BeEmpty())
		})

		It("answers 401 for bad credentials", func() {
			body, _ := json.Marshal(auth.LoginDTO{Email: "admin@example.com", Password: "nope"})
			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
			w := httptest.NewRecorder()

			handler.Login(w, req)

			Expect(w.Code).To(Equal(http.StatusUnauthorized))
			Expect(w.Body.String()).To(ContainSubstring("INVALID_CREDENTIALS"))
		})

		It("answers 400 for a malformed body", func() {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewBufferString("{"))
			w := httptest.NewRecorder()

			handler.Login(w, req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("AuthMiddleware", func() {
		var (
			seen *auth.Actor
			next http.Handler
		)

		BeforeEach(func() {
			seen = nil
			next = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen, _ = auth.ActorFromContext(r.Context())
				w.WriteHeader(http.StatusNoContent)
			})
		})

		serve := func(authorization string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
			if authorization != "" {
				req.Header.Set("Authorization", authorization)
			}
			w := httptest.NewRecorder()
			handler.AuthMiddleware(next).ServeHTTP(w, req)
			return w
		}

		It("stores the current actor in the context", func() {
			w := serve(bearer(admin))

			Expect(w.Code).To(Equal(http.StatusNoContent))
			Expect(seen).NotTo(BeNil())
			Expect(seen.ID).To(Equal(int64(5)))
			Expect(seen.Role).To(Equal(role.Admin))
		})

		It("picks up role changes made after the token was issued", func() {
			authorization := bearer(admin)
			admin.Role = role.Employee

			Expect(serve(authorization).Code).To(Equal(http.StatusNoContent))
			Expect(seen.Role).To(Equal(role.Employee))
		})

		It("rejects missing and malformed tokens", func() {
			Expect(serve("").Code).To(Equal(http.StatusUnauthorized))
			Expect(serve("Token abc").Code).To(Equal(http.StatusUnauthorized))
			Expect(serve("Bearer garbage").Code).To(Equal(http.StatusUnauthorized))
			Expect(seen).To(BeNil())
		})

		It("rejects deactivated users", func() {
			authorization := bearer(admin)
			admin.IsActive = false

			Expect(serve(authorization).Code).To(Equal(http.StatusForbidden))
		})
	})

	Describe("RBACAuthorization", func() {
		var rbac *auth.RBACAuthorization

		BeforeEach(func() {
			rbac = auth.NewRBACAuthorization(quietLogger())
		})

		serveAs := func(mw func(http.Handler) http.Handler, a *auth.Actor) int {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/grievances/assign", nil)
			if a != nil {
				req = req.WithContext(auth.ContextWithActor(context.Background(), a))
			}
			w := httptest.NewRecorder()
			mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			})).ServeHTTP(w, req)
			return w.Code
		}

		It("lets elevated roles through", func() {
			Expect(serveAs(rbac.RequireElevated(), actor(1, role.Admin, ptr(int64(1))))).To(Equal(http.StatusOK))
			Expect(serveAs(rbac.RequireElevated(), actor(1, role.SuperAdmin, nil))).To(Equal(http.StatusOK))
		})

		It("forbids other roles", func() {
			Expect(serveAs(rbac.RequireElevated(), actor(1, role.Employee, ptr(int64(1))))).To(Equal(http.StatusForbidden))
			Expect(serveAs(rbac.RequireSuperAdmin(), actor(1, role.Admin, ptr(int64(1))))).To(Equal(http.StatusForbidden))
		})

		It("answers 401 without an actor", func() {
			Expect(serveAs(rbac.RequireRole(role.User), nil)).To(Equal(http.StatusUnauthorized))
		})
	})
})
