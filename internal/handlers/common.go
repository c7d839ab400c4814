package handlers

import (
	"mime/multipart"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/javajoker/marketplace-backend/internal/i18n"
	"github.com/javajoker/marketplace-backend/internal/models"
	"github.com/javajoker/marketplace-backend/internal/services"
	"github.com/javajoker/marketplace-backend/internal/utils"
)

// currentActor reads the identity stored by AuthRequired. It writes a 401
// and returns false when the context carries none.
func currentActor(c *gin.Context) (services.Actor, bool) {
	rawID, _ := utils.GetUserIDFromContext(c)
	id, err := uuid.Parse(rawID)
	if err != nil {
		utils.UnauthorizedResponse(c, "")
		return services.Actor{}, false
	}
	role, _ := utils.GetRoleFromContext(c)
	return services.Actor{ID: id, Role: models.Role(role)}, true
}

// bindRequest binds JSON or form data depending on the content type and
// runs struct validation, writing a 400 on failure.
func bindRequest(c *gin.Context, req interface{}) bool {
	lang := utils.GetLangFromContext(c)

	if err := c.ShouldBind(req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return false
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return false
	}
	return true
}

// optionalFile returns the uploaded file for field, or nil when the request
// is not multipart or the field is absent.
func optionalFile(c *gin.Context, field string) *multipart.FileHeader {
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		return nil
	}
	file, err := c.FormFile(field)
	if err != nil {
		return nil
	}
	return file
}
