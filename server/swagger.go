package server

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"retrievalagent/docs"
)

// registerSwaggerRoutes регистрирует Swagger UI и doc.json.
// Host пустой, поэтому UI обращается к тому же адресу, с которого открыт.
func registerSwaggerRoutes(router *gin.Engine) {
	docs.SwaggerInfo.BasePath = "/api"
	docs.SwaggerInfo.Schemes = []string{"http", "https"}

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))
}
