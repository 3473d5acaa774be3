package devserver

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// validationIssue is one entry of a 422 detail list
type validationIssue struct {
	Loc  []any  `json:"loc"`
	Msg  string `json:"msg"`
	Type string `json:"type"`
}

// abortWithDetail answers {"detail": ..., "code": ...}; code is omitted when empty
func abortWithDetail(c *gin.Context, status int, detail, code string) {
	body := gin.H{"detail": detail}
	if code != "" {
		body["code"] = code
	}
	c.AbortWithStatusJSON(status, body)
}

// bindJSON decodes and validates a request body. It answers the request and
// returns false when the body is unusable.
func (s *Server) bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"detail": []validationIssue{{
			Loc:  []any{"body"},
			Msg:  "invalid JSON body: " + err.Error(),
			Type: "json_invalid",
		}}})
		return false
	}

	if err := s.validator.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			abortWithDetail(c, http.StatusBadRequest, err.Error(), "")
			return false
		}
		issues := make([]validationIssue, 0, len(verrs))
		for _, fe := range verrs {
			issues = append(issues, validationIssue{
				Loc:  []any{"body", fe.Field()},
				Msg:  issueMessage(fe),
				Type: fe.Tag(),
			})
		}
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"detail": issues})
		return false
	}
	return true
}

func issueMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Field required"
	case "email":
		return "value is not a valid email address"
	case "min":
		return fmt.Sprintf("should have at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("should have at most %s characters", fe.Param())
	case "gt":
		return fmt.Sprintf("should be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("should be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("should be less than or equal to %s", fe.Param())
	default:
		return "invalid value"
	}
}

// pathID parses an integer path parameter, answering 422 when it is not one
func pathID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"detail": []validationIssue{{
			Loc:  []any{"path", name},
			Msg:  "Input should be a valid integer",
			Type: "int_parsing",
		}}})
		return 0, false
	}
	return id, true
}

// dbFailure answers 404 for missing records and 500 otherwise
func (s *Server) dbFailure(c *gin.Context, err error, what string, id int) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		abortWithDetail(c, http.StatusNotFound, fmt.Sprintf("%s %d not found", what, id), "")
		return
	}
	s.logger.Error().Err(err).Str("entity", what).Int("id", id).Msg("Database error")
	abortWithDetail(c, http.StatusInternalServerError, "Internal server error", "")
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}
