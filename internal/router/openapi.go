package router

import (
	_ "embed"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// OpenAPIPath serves the REST API description read by the Swagger UI.
const OpenAPIPath = "/openapi.json"

//go:embed openapi.json
var openAPIDoc []byte

func serveOpenAPI(c *gin.Context) {
	c.Data(http.StatusOK, "application/json; charset=utf-8", openAPIDoc)
}

// mountDocs registers the OpenAPI document and the Swagger UI pointed at it.
func mountDocs(r *gin.Engine) {
	r.GET(OpenAPIPath, serveOpenAPI)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL(OpenAPIPath)))
}
