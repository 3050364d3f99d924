// cmd/main.go
package main

import (
	"staff-identity-api/app"
)

// @title           Staff Identity API
// @version         1.0
// @description     Staff authentication and refresh token rotation service.

// @contact.name   API Support
// @contact.email  support@example.com

// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	app.Run()
}
