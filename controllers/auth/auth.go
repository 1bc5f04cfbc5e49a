package authControllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/junaidrashid-git/shopcart-api/controllers/respond"
	"github.com/junaidrashid-git/shopcart-api/services/user"
)

type RegisterInput struct {
	Name                 string `json:"name"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// POST /register
func Register(svc *user.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input RegisterInput
		if !respond.BindJSON(c, &input) {
			return
		}

		res, err := svc.Register(c.Request.Context(), user.RegisterInput{
			Name:                 input.Name,
			Email:                input.Email,
			Password:             input.Password,
			PasswordConfirmation: input.PasswordConfirmation,
		})
		if err != nil {
			respond.Error(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{"user": res.User, "access_token": res.AccessToken})
	}
}

// POST /login
func Login(svc *user.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input LoginInput
		if !respond.BindJSON(c, &input) {
			return
		}

		res, err := svc.Login(c.Request.Context(), input.Email, input.Password)
		if err != nil {
			respond.Error(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"access_token": res.AccessToken, "user": res.User})
	}
}

// POST /logout
func Logout(svc *user.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.Logout(c.Request.Context(), respond.Caller(c)); err != nil {
			respond.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
	}
}
