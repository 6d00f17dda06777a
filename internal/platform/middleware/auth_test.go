package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	id "github.com/markcoleman/Aggregator-the-agitator/pkg/domain"
	"github.com/markcoleman/Aggregator-the-agitator/pkg/requestcontext"
)

const (
	testSubjectID = "subject-12345"
	testClientID  = "client-67890"
)

// MockJWTValidator is a testify mock for JWTValidator
type MockJWTValidator struct {
	mock.Mock
}

func (m *MockJWTValidator) ValidateToken(tokenString string) (*JWTClaims, error) {
	args := m.Called(tokenString)
	if claims := args.Get(0); claims != nil {
		return claims.(*JWTClaims), args.Error(1)
	}
	return nil, args.Error(1)
}

// mockHandler is a test handler that captures if it was called and the context
type mockHandler struct {
	called  bool
	context context.Context
}

func (m *mockHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.called = true
	m.context = r.Context()
	w.WriteHeader(http.StatusOK)
}

// AuthMiddlewareTestSuite is the test suite for auth middleware
type AuthMiddlewareTestSuite struct {
	suite.Suite
	validator   *MockJWTValidator
	logger      *slog.Logger
	nextHandler *mockHandler
	middleware  func(http.Handler) http.Handler
}

func (s *AuthMiddlewareTestSuite) SetupTest() {
	s.validator = new(MockJWTValidator)
	s.logger = slog.Default()
	s.nextHandler = &mockHandler{}
	s.middleware = RequireAuth(s.validator, s.logger)
}

func (s *AuthMiddlewareTestSuite) TearDownTest() {
	s.validator.AssertExpectations(s.T())
}

func (s *AuthMiddlewareTestSuite) makeRequest(authHeader string) *httptest.ResponseRecorder {
	handler := s.middleware(s.nextHandler)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func (s *AuthMiddlewareTestSuite) TestValidSubjectToken() {
	claims := &JWTClaims{
		SubjectID: testSubjectID,
		ClientID:  testClientID,
		ActorType: "subject",
	}
	s.validator.On("ValidateToken", "valid-token").Return(claims, nil)

	w := s.makeRequest("Bearer valid-token")

	assert.True(s.T(), s.nextHandler.called, "next handler should be called")
	assert.Equal(s.T(), http.StatusOK, w.Code)
	assert.Equal(s.T(), testSubjectID, requestcontext.SubjectID(s.nextHandler.context).String())
	assert.Equal(s.T(), testClientID, requestcontext.ClientID(s.nextHandler.context).String())
	assert.Equal(s.T(), id.ActorSubject, requestcontext.ActorType(s.nextHandler.context))
}

func (s *AuthMiddlewareTestSuite) TestValidClientToken() {
	claims := &JWTClaims{
		ClientID:  testClientID,
		ActorType: "client",
	}
	s.validator.On("ValidateToken", "client-token").Return(claims, nil)

	w := s.makeRequest("Bearer client-token")

	assert.True(s.T(), s.nextHandler.called)
	assert.Equal(s.T(), http.StatusOK, w.Code)
	assert.True(s.T(), requestcontext.SubjectID(s.nextHandler.context).IsNil())
	assert.Equal(s.T(), testClientID, requestcontext.ClientID(s.nextHandler.context).String())
	assert.Equal(s.T(), id.ActorClient, requestcontext.ActorType(s.nextHandler.context))
}

func (s *AuthMiddlewareTestSuite) TestValidAdminToken() {
	claims := &JWTClaims{ActorType: "admin"}
	s.validator.On("ValidateToken", "admin-token").Return(claims, nil)

	w := s.makeRequest("Bearer admin-token")

	assert.True(s.T(), s.nextHandler.called)
	assert.Equal(s.T(), http.StatusOK, w.Code)
	assert.True(s.T(), requestcontext.SubjectID(s.nextHandler.context).IsNil())
	assert.True(s.T(), requestcontext.ClientID(s.nextHandler.context).IsNil())
	assert.Equal(s.T(), id.ActorAdmin, requestcontext.ActorType(s.nextHandler.context))
}

func (s *AuthMiddlewareTestSuite) TestTokenAPIVersionPropagated() {
	claims := &JWTClaims{
		SubjectID:  testSubjectID,
		ActorType:  "subject",
		APIVersion: "v6",
	}
	s.validator.On("ValidateToken", "versioned-token").Return(claims, nil)

	s.makeRequest("Bearer versioned-token")

	assert.True(s.T(), s.nextHandler.called)
	assert.Equal(s.T(), id.APIVersionV6, requestcontext.TokenAPIVersion(s.nextHandler.context))
}

func (s *AuthMiddlewareTestSuite) TestMalformedClaims() {
	testCases := []struct {
		name   string
		claims *JWTClaims
	}{
		{"unknown actor type", &JWTClaims{SubjectID: testSubjectID, ActorType: "superuser"}},
		{"empty actor type", &JWTClaims{SubjectID: testSubjectID}},
		{"subject token missing sub_id", &JWTClaims{ActorType: "subject"}},
		{"client token missing client_id", &JWTClaims{ActorType: "client"}},
		{"unknown api version", &JWTClaims{SubjectID: testSubjectID, ActorType: "subject", APIVersion: "v99"}},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			validator := new(MockJWTValidator)
			validator.On("ValidateToken", "valid-token").Return(tc.claims, nil)
			nextHandler := &mockHandler{}
			handler := RequireAuth(validator, s.logger)(nextHandler)

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.Header.Set("Authorization", "Bearer valid-token")
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.False(s.T(), nextHandler.called, "next handler should not be called for malformed claims")
			assert.Equal(s.T(), http.StatusUnauthorized, w.Code)
			assert.JSONEq(s.T(),
				`{"error":"unauthorized","error_description":"Invalid or expired token"}`,
				w.Body.String(),
			)
			validator.AssertExpectations(s.T())
		})
	}
}

func (s *AuthMiddlewareTestSuite) TestInvalidToken() {
	s.validator.On("ValidateToken", "invalid-token").Return(nil, errors.New("token expired"))

	w := s.makeRequest("Bearer invalid-token")

	assert.False(s.T(), s.nextHandler.called, "next handler should not be called")
	assert.Equal(s.T(), http.StatusUnauthorized, w.Code)
	assert.Equal(s.T(), "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(s.T(),
		`{"error":"unauthorized","error_description":"Invalid or expired token"}`,
		w.Body.String(),
	)
}

func (s *AuthMiddlewareTestSuite) TestMissingAuthorizationHeader() {
	w := s.makeRequest("")

	assert.False(s.T(), s.nextHandler.called, "next handler should not be called")
	assert.Equal(s.T(), http.StatusUnauthorized, w.Code)
	assert.JSONEq(s.T(),
		`{"error":"unauthorized","error_description":"Missing or invalid Authorization header"}`,
		w.Body.String(),
	)
}

func (s *AuthMiddlewareTestSuite) TestInvalidAuthorizationFormats() {
	testCases := []struct {
		name       string
		authHeader string
	}{
		{"no bearer prefix", "token-without-bearer"},
		{"wrong prefix", "Basic dXNlcjpwYXNz"},
		{"lowercase bearer", "bearer token"},
		{"bearer without space", "Bearertoken"},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			nextHandler := &mockHandler{}
			handler := RequireAuth(s.validator, s.logger)(nextHandler)

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.Header.Set("Authorization", tc.authHeader)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.False(s.T(), nextHandler.called, "next handler should not be called")
			assert.Equal(s.T(), http.StatusUnauthorized, w.Code)
			assert.JSONEq(s.T(),
				`{"error":"unauthorized","error_description":"Missing or invalid Authorization header"}`,
				w.Body.String(),
			)
		})
	}
}

func TestAuthMiddlewareTestSuite(t *testing.T) {
	suite.Run(t, new(AuthMiddlewareTestSuite))
}

func TestRequireActorTypes(t *testing.T) {
	tests := []struct {
		name       string
		actorType  id.ActorType
		allowed    []id.ActorType
		wantStatus int
		wantNext   bool
	}{
		{
			name:       "admin allowed on admin-only route",
			actorType:  id.ActorAdmin,
			allowed:    []id.ActorType{id.ActorAdmin},
			wantStatus: http.StatusOK,
			wantNext:   true,
		},
		{
			name:       "subject allowed when both subject and client permitted",
			actorType:  id.ActorSubject,
			allowed:    []id.ActorType{id.ActorSubject, id.ActorClient},
			wantStatus: http.StatusOK,
			wantNext:   true,
		},
		{
			name:       "client rejected on admin-only route",
			actorType:  id.ActorClient,
			allowed:    []id.ActorType{id.ActorAdmin},
			wantStatus: http.StatusForbidden,
			wantNext:   false,
		},
		{
			name:       "missing actor type rejected",
			actorType:  "",
			allowed:    []id.ActorType{id.ActorSubject},
			wantStatus: http.StatusForbidden,
			wantNext:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := &mockHandler{}
			handler := RequireActorTypes(slog.Default(), tt.allowed...)(next)

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.actorType != "" {
				req = req.WithContext(requestcontext.WithActorType(req.Context(), tt.actorType))
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantNext, next.called)
		})
	}
}
