package interfaces

import "github.com/gin-gonic/gin"

// ApplicationContext carries a request through the controller layer with its
// parsed body and route values.
type ApplicationContext[T any] struct {
	Ctx  *gin.Context
	Body *T
	Keys map[string]any
}
