package userControllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/junaidrashid-git/shopcart-api/controllers/respond"
	"github.com/junaidrashid-git/shopcart-api/services/user"
)

type ListUsersQuery struct {
	Keyword       string `form:"keyword"`
	Page          int    `form:"page" binding:"omitempty,min=1"`
	PerPage       int    `form:"per_page" binding:"omitempty,min=1,max=100"`
	OrderBy       string `form:"order_by" binding:"omitempty,oneof=asc desc"`
	OrderByColumn string `form:"order_by_column" binding:"omitempty,oneof=id name email created_at"`
}

// GET /admin/users
func GetAllUsers(svc *user.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var q ListUsersQuery
		if !respond.BindQuery(c, &q) {
			return
		}

		page, err := svc.ListUsers(c.Request.Context(), user.ListQuery{
			Keyword:       q.Keyword,
			Page:          q.Page,
			PerPage:       q.PerPage,
			OrderBy:       q.OrderBy,
			OrderByColumn: q.OrderByColumn,
		})
		if err != nil {
			respond.Error(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"data":     page.Users,
			"total":    page.Total,
			"page":     page.Page,
			"per_page": page.PerPage,
		})
	}
}
