package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sujalbistaa/whisperwall/internal/models"
	"github.com/sujalbistaa/whisperwall/internal/service"
)

type WhisperInput struct {
	Text     string          `json:"text" binding:"required,max=2000"`
	Category models.Category `json:"category"`
	Room     string          `json:"room" binding:"omitempty,oneof=wall confession"`
}

func (e *Env) GetWhispers(c *gin.Context) {
	page, limit := pageParams(c)
	whispers, err := e.Svc.ListWhispers(currentSession(c), c.Query("room"), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, whispers)
}

func (e *Env) GetWhisper(c *gin.Context) {
	w, err := e.Svc.GetWhisper(currentSession(c), c.Param("postId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

func (e *Env) CreateWhisper(c *gin.Context) {
	var input WhisperInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	w, err := e.Svc.CreateWhisper(currentSession(c), service.NewWhisper{
		Text:     input.Text,
		Category: input.Category,
		Room:     input.Room,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, w)
}

func (e *Env) ForwardWhisper(c *gin.Context) {
	w, err := e.Svc.ForwardWhisper(currentSession(c), c.Param("postId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, w)
}

func (e *Env) HideWhisper(c *gin.Context) {
	if err := e.Svc.HideWhisper(currentSession(c), c.Param("postId"), false); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Whisper removed"})
}

func (e *Env) AdminHideWhisper(c *gin.Context) {
	if err := e.Svc.HideWhisper("", c.Param("postId"), true); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Whisper removed"})
}

func (e *Env) ReactToWhisper(c *gin.Context) {
	var input ReactionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	state, err := e.Svc.AddReaction(models.TargetWhisper, c.Param("postId"), currentSession(c), input.ReactionType)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (e *Env) UnreactWhisper(c *gin.Context) {
	state, err := e.Svc.RemoveReaction(models.TargetWhisper, c.Param("postId"), currentSession(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (e *Env) GetWhisperComments(c *gin.Context) {
	page, limit := pageParams(c)
	comments, err := e.Svc.ListComments(models.TargetWhisper, c.Param("postId"), currentSession(c), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, comments)
}

func (e *Env) AddWhisperComment(c *gin.Context) {
	var input CommentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	comment, err := e.Svc.AddComment(models.TargetWhisper, c.Param("postId"), currentSession(c), input.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}
