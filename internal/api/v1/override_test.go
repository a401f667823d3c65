package v1

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"

	"github.com/drivekit/billing/internal/domain/override"
	ierr "github.com/drivekit/billing/internal/errors"
	"github.com/drivekit/billing/internal/testutil"
	"github.com/drivekit/billing/internal/types"
)

// recordingOverrideService captures what the handler forwards so the suite
// can assert a rejected payload never reaches the service layer.
type recordingOverrideService struct {
	applied map[types.ServiceKind]override.Flag
	calls   int
}

func (s *recordingOverrideService) Apply(_ context.Context, userID string, features map[types.ServiceKind]override.Flag) (*override.FeatureOverride, error) {
	s.calls++
	s.applied = features
	stored := override.New(userID)
	stored.Merge(features)
	return stored, nil
}

func (s *recordingOverrideService) Get(_ context.Context, userID string) (*override.FeatureOverride, error) {
	return override.New(userID), nil
}

type OverrideHandlerSuite struct {
	suite.Suite
	svc     *recordingOverrideService
	handler *OverrideHandler
}

func TestOverrideHandlerSuite(t *testing.T) {
	gin.SetMode(gin.TestMode)
	suite.Run(t, new(OverrideHandlerSuite))
}

func (s *OverrideHandlerSuite) SetupTest() {
	s.svc = &recordingOverrideService{}
	s.handler = NewOverrideHandler(testutil.GetLogger(), s.svc)
}

func (s *OverrideHandlerSuite) apply(userID, body string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: userID}}
	c.Request = httptest.NewRequest(http.MethodPut, "/v1/internal/users/"+userID+"/overrides", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	s.handler.Apply(c)
	return c, w
}

func (s *OverrideHandlerSuite) TestApplyForwardsValidPayload() {
	_, w := s.apply("user_1", `{"features_per_service":{"vpn":{"enabled":true}}}`)

	s.Equal(http.StatusOK, w.Code)
	s.Equal(1, s.svc.calls)
	s.True(s.svc.applied[types.ServiceVPN].Enabled)
}

func (s *OverrideHandlerSuite) TestApplyRejectsUnknownServiceKey() {
	c, _ := s.apply("user_1", `{"features_per_service":{"teleport":{"enabled":true}}}`)

	s.Require().NotEmpty(c.Errors)
	s.True(ierr.IsValidation(c.Errors.Last().Err))
	s.Zero(s.svc.calls)
}

func (s *OverrideHandlerSuite) TestApplyRejectsMalformedBody() {
	c, _ := s.apply("user_1", `{"features_per_service":`)

	s.Require().NotEmpty(c.Errors)
	s.True(ierr.IsValidation(c.Errors.Last().Err))
	s.Zero(s.svc.calls)
}

func (s *OverrideHandlerSuite) TestApplyRequiresUserID() {
	c, _ := s.apply("", `{"features_per_service":{}}`)

	s.Require().NotEmpty(c.Errors)
	s.True(ierr.IsValidation(c.Errors.Last().Err))
	s.Zero(s.svc.calls)
}
