package routes

import (
	"github.com/gin-gonic/gin"
	authControllers "github.com/junaidrashid-git/shopcart-api/controllers/auth"
	"github.com/junaidrashid-git/shopcart-api/middleware"
)

// SetupAuthRoutes registers /register, /login and /logout.
func SetupAuthRoutes(r *gin.Engine, d Deps) {
	r.POST("/register", authControllers.Register(d.Users))
	r.POST("/login", authControllers.Login(d.Users))
	r.POST("/logout", middleware.ValidateToken(d.Users), authControllers.Logout(d.Users))
}
