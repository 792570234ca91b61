package routev1

import (
	apperrors "rollcall.io/application/appErrors"
	"rollcall.io/application/controller"
	"rollcall.io/application/controller/dto"
	"rollcall.io/application/interfaces"

	"github.com/gin-gonic/gin"
)

func AttendanceRouter(router *gin.RouterGroup) {
	attendanceRouter := router.Group("/attendance")
	{
		attendanceRouter.POST("/predict", func(ctx *gin.Context) {
			var body dto.PredictAttendanceDTO
			if err := ctx.ShouldBindJSON(&body); err != nil {
				apperrors.ErrorProcessingPayload(ctx)
				return
			}
			controller.PredictAttendance(&interfaces.ApplicationContext[dto.PredictAttendanceDTO]{
				Ctx:  ctx,
				Body: &body,
			})
		})

		attendanceRouter.GET("/session/:sessionID", func(ctx *gin.Context) {
			controller.GetSessionResult(&interfaces.ApplicationContext[any]{
				Ctx: ctx,
				Keys: map[string]any{
					"sessionID": ctx.Param("sessionID"),
				},
			})
		})

		attendanceRouter.GET("/health", func(ctx *gin.Context) {
			controller.PipelineHealth(&interfaces.ApplicationContext[any]{
				Ctx: ctx,
			})
		})
	}

	galleryRouter := router.Group("/gallery")
	{
		galleryRouter.POST("/refresh", func(ctx *gin.Context) {
			var body dto.RefreshGalleryDTO
			if err := ctx.ShouldBindJSON(&body); err != nil {
				apperrors.ErrorProcessingPayload(ctx)
				return
			}
			controller.RefreshGallery(&interfaces.ApplicationContext[dto.RefreshGalleryDTO]{
				Ctx:  ctx,
				Body: &body,
			})
		})

		galleryRouter.POST("/enroll", func(ctx *gin.Context) {
			var body dto.EnrollStudentDTO
			if err := ctx.ShouldBindJSON(&body); err != nil {
				apperrors.ErrorProcessingPayload(ctx)
				return
			}
			controller.EnrollStudent(&interfaces.ApplicationContext[dto.EnrollStudentDTO]{
				Ctx:  ctx,
				Body: &body,
			})
		})
	}
}
