package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/triviahub/triviad/internal/errors"
	"github.com/triviahub/triviad/internal/game"
	"github.com/triviahub/triviad/internal/hub"
	"github.com/triviahub/triviad/internal/question"
)

type Config struct {
	Router    *gin.Engine
	Hub       *hub.Hub
	Game      *game.Service
	Questions *question.Service
}

// API exposes the participant WebSocket endpoint, a session status
// endpoint and the question content-management surface.
type API struct {
	hub       *hub.Hub
	game      *game.Service
	questions *question.Service
}

func New(c Config) *API {
	a := &API{
		hub:       c.Hub,
		game:      c.Game,
		questions: c.Questions,
	}

	c.Router.GET("/ws", gin.WrapF(c.Hub.Serve))

	g := c.Router.Group("/api")
	g.GET("/session", a.sessionStatus)
	g.GET("/questions", a.listQuestions)
	g.POST("/questions", a.createQuestion)
	g.DELETE("/questions/:id", a.deleteQuestion)

	return a
}

func (a *API) sessionStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"phase":     a.game.Phase(),
		"connected": a.hub.Count(),
	}})
}

func (a *API) listQuestions(c *gin.Context) {
	questions, err := a.questions.ListQuestions(c.Request.Context(), question.ListQuestionsRequest{})
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": questions})
}

func (a *API) createQuestion(c *gin.Context) {
	var req question.CreateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	q, err := a.questions.CreateQuestion(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": q})
}

func (a *API) deleteQuestion(c *gin.Context) {
	err := a.questions.DeleteQuestion(c.Request.Context(), question.DeleteQuestionRequest{
		QuestionID: c.Param("id"),
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "question deleted"})
}

func abortWithError(c *gin.Context, err error) {
	e := errors.Convert(err)
	c.AbortWithStatusJSON(e.HTTPStatusCode(), gin.H{"error": e.Message})
}
