package webapi

import (
	"fmt"

	"github.com/gin-gonic/gin"
)

// NewRouter はルーティングを構築します。/api/health 以外の API は
// JWT による呼び出し元識別を必須とします。
func NewRouter(handler *Handler, jwtSecret []byte) (*gin.Engine, error) {
	if handler == nil {
		return nil, fmt.Errorf("handler は必須です")
	}
	if len(jwtSecret) == 0 {
		return nil, fmt.Errorf("jwtSecret は必須です")
	}

	router := gin.New()
	router.Use(gin.Recovery(), RequestID())

	router.GET("/api/health", handler.Health)

	authed := router.Group("/api", Identity(jwtSecret))
	{
		authed.POST("/describe-scene", handler.DescribeScene)
		authed.POST("/synthesize-image", handler.SynthesizeImage)
		authed.POST("/describe-and-generate", handler.DescribeAndGenerate)
	}

	return router, nil
}
