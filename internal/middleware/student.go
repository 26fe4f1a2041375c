package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/campushq/school-portal-api/internal/models"
	"github.com/campushq/school-portal-api/internal/service"
	appErrors "github.com/campushq/school-portal-api/pkg/errors"
	"github.com/campushq/school-portal-api/pkg/response"
)

// ContextStudentKey is the gin context key storing the resolved student.
const ContextStudentKey = "currentStudent"

// ResolveStudent loads the student profile behind the authenticated user
// and stores it in the context. Non-student roles pass through without a
// profile. A STUDENT account without a profile is broken data, not a
// transient error: the request is rejected and the account's refresh
// tokens are revoked so the session cannot limp along.
func ResolveStudent(students *service.StudentService, auth *service.AuthService, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims := claimsValue.(*models.JWTClaims)
		if claims.Role != models.RoleStudent {
			c.Next()
			return
		}

		student, err := students.GetByUserID(c.Request.Context(), claims.UserID)
		if err != nil {
			var appErr *appErrors.Error
			if errors.As(err, &appErr) && appErr.Code == appErrors.ErrProfileMissing.Code {
				logger.Warn("account has no student profile, revoking sessions",
					zap.String("user_id", claims.UserID))
				if revokeErr := auth.RevokeSessions(c.Request.Context(), claims.UserID); revokeErr != nil {
					logger.Warn("failed to revoke sessions", zap.Error(revokeErr))
				}
			}
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextStudentKey, student)
		c.Next()
	}
}
