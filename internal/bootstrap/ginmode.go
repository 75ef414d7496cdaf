package bootstrap

import "github.com/gin-gonic/gin"

// SetGinMode maps the app environment onto gin's mode: production runs
// release, test suites run test mode, everything else keeps debug output.
func SetGinMode(env string) {
	switch env {
	case "production":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}
}
