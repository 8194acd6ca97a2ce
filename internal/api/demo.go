package api

import "github.com/gin-gonic/gin"

// demoStatus is the canned status document served while no companion
// endpoint is reachable. The dashboard renders it instead of an error.
func demoStatus() gin.H {
	return gin.H{
		"online": false,
		"demo":   true,
		"capabilities": map[string]bool{
			"guilds":   false,
			"commands": false,
		},
		"message": "Bot backend unreachable - showing demo data",
	}
}
