package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/marketplace-backend/internal/models"
	"github.com/javajoker/marketplace-backend/internal/utils"
)

// Operation names an authenticated action guarded by the policy table.
type Operation string

const (
	OpViewProfile       Operation = "profile.view"
	OpManageOwnProducts Operation = "product.manage"
	OpPlaceBid          Operation = "bid.place"
	OpManageBids        Operation = "bid.manage"
	OpFinalizeSale      Operation = "sale.finalize"
	OpViewSales         Operation = "sale.view"
	OpManageCategories  Operation = "category.manage"
	OpManageUsers       Operation = "user.manage"
	OpViewStatistics    Operation = "statistics.view"
)

var (
	anyRole   = []models.Role{models.RoleAdmin, models.RoleModerator, models.RoleUser}
	staffOnly = []models.Role{models.RoleAdmin, models.RoleModerator}
	adminOnly = []models.Role{models.RoleAdmin}
)

// Policies maps each operation to the roles allowed to perform it. Ownership
// of the target resource is checked by the services.
var Policies = map[Operation][]models.Role{
	OpViewProfile:       anyRole,
	OpManageOwnProducts: anyRole,
	OpPlaceBid:          anyRole,
	OpManageBids:        anyRole,
	OpFinalizeSale:      anyRole,
	OpViewSales:         anyRole,
	OpManageCategories:  staffOnly,
	OpManageUsers:       adminOnly,
	OpViewStatistics:    staffOnly,
}

// Allowed reports whether role may perform op. Unknown operations are denied.
func Allowed(op Operation, role models.Role) bool {
	for _, r := range Policies[op] {
		if r == role {
			return true
		}
	}
	return false
}

// Authorize must run after AuthRequired.
func Authorize(op Operation) gin.HandlerFunc {
	if _, ok := Policies[op]; !ok {
		logrus.WithField("operation", op).Warn("No policy registered for operation; all requests will be denied")
	}

	return func(c *gin.Context) {
		role, _ := utils.GetRoleFromContext(c)
		if !Allowed(op, models.Role(role)) {
			utils.ForbiddenResponse(c, "")
			c.Abort()
			return
		}
		c.Next()
	}
}
