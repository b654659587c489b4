package router

import (
	"net/http"

	"Exam-Template-Wizard-Backend/internal/api"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func SetupRouter(wizardHandler *api.WizardHandler, allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(api.RequestContext())
	r.Use(api.RequestLogger())

	config := cors.DefaultConfig()
	config.AllowOrigins = allowedOrigins
	config.AllowHeaders = append(config.AllowHeaders, "Authorization", "X-Auth-Token", api.RequestIDHeader, "Content-Type")
	config.ExposeHeaders = append(config.ExposeHeaders, api.RequestIDHeader)
	r.Use(cors.New(config))

	apiV1 := r.Group("/api/v1")
	{
		apiV1.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "UP"})
		})

		apiV1.POST("/drafts", wizardHandler.StartCreateHandler)
		apiV1.GET("/drafts", wizardHandler.ListDraftsHandler)
		apiV1.GET("/drafts/:key", wizardHandler.GetDraftHandler)
		apiV1.PATCH("/drafts/:key", wizardHandler.UpdateDetailsHandler)
		apiV1.DELETE("/drafts/:key", wizardHandler.CancelHandler)
		apiV1.POST("/templates/:id/draft", wizardHandler.StartEditHandler)

		subjects := apiV1.Group("/drafts/:key/subjects")
		{
			subjects.POST("", wizardHandler.AddSubjectHandler)
			subjects.PUT("/:subject", wizardHandler.SaveAssignmentHandler)
			subjects.DELETE("/:subject", wizardHandler.RemoveSubjectHandler)
			subjects.POST("/:subject/questions", wizardHandler.AddQuestionHandler)
			subjects.DELETE("/:subject/questions/:question", wizardHandler.RemoveQuestionHandler)
			subjects.PATCH("/:subject/questions/:question/options/:option", wizardHandler.UpdateOptionHandler)
		}

		apiV1.GET("/drafts/:key/violations", wizardHandler.ViolationsHandler)
		apiV1.POST("/drafts/:key/submit", wizardHandler.SubmitHandler)

		apiV1.GET("/subjects", wizardHandler.SubjectsHandler)
		apiV1.POST("/images", wizardHandler.UploadImageHandler)
	}

	return r
}
