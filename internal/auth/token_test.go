package auth_test

import (
	"time"

	"github.com/frahmantamala/grievance-management/internal"
	"github.com/frahmantamala/grievance-management/internal/auth"
	"github.com/frahmantamala/grievance-management/internal/core/role"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const (
	accessSecret  = "access-secret-access-secret-0123456789"
	refreshSecret = "refresh-secret-refresh-secret-0123456789"
)

var _ = Describe("JWTTokenGenerator", func() {
	var (
		gen *auth.JWTTokenGenerator
		a   *auth.Actor
	)

	BeforeEach(func() {
		gen = auth.NewJWTTokenGenerator(accessSecret, refreshSecret, time.Minute, time.Hour)
		a = actor(42, role.Admin, ptr(int64(3)))
	})

	It("round-trips an access token", func() {
		token, err := gen.GenerateAccessToken(a)
		Expect(err).NotTo(HaveOccurred())

		claims, err := gen.ValidateAccessToken(token)
		Expect(err).NotTo(HaveOccurred())
		Expect(claims.TokenType).To(Equal(auth.TokenTypeAccess))
		Expect(claims.Role).To(Equal("admin"))

		id, err := claims.ActorID()
		Expect(err).NotTo(HaveOccurred())
		Expect(id).To(Equal(int64(42)))
	})

	It("does not accept a refresh token as an access token", func() {
		token, err := gen.GenerateRefreshToken(a)
		Expect(err).NotTo(HaveOccurred())

		_, err = gen.ValidateAccessToken(token)
		Expect(err).To(MatchError(internal.ErrInvalidToken))

		_, err = gen.ValidateRefreshToken(token)
		Expect(err).NotTo(HaveOccurred())
	})

	It("rejects tokens signed with another secret", func() {
		other := auth.NewJWTTokenGenerator("another-access-secret-0123456789abcd", refreshSecret, time.Minute, time.Hour)
		token, err := other.GenerateAccessToken(a)
		Expect(err).NotTo(HaveOccurred())

		_, err = gen.ValidateAccessToken(token)
		Expect(err).To(MatchError(internal.ErrInvalidToken))
	})

	It("reports expiry separately", func() {
		expired := &auth.JWTTokenGenerator{
			AccessTokenSecret: []byte(accessSecret),
			AccessTokenTTL:    -time.Minute,
		}
		token, err := expired.GenerateAccessToken(a)
		Expect(err).NotTo(HaveOccurred())

		_, err = gen.ValidateAccessToken(token)
		Expect(err).To(MatchError(internal.ErrTokenExpired))
	})

	It("falls back to default lifetimes", func() {
		g := auth.NewJWTTokenGenerator(accessSecret, refreshSecret, 0, 0)
		Expect(g.AccessTokenTTL).To(Equal(15 * time.Minute))
		Expect(g.RefreshTokenTTL).To(Equal(7 * 24 * time.Hour))
	})
})
