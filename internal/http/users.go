package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sujalbistaa/whisperwall/internal/models"
)

type CreateUserInput struct {
	Username    string `json:"username" binding:"required"`
	DisplayName string `json:"displayName" binding:"max=64"`
}

type PreferencesInput struct {
	Categories []models.Category `json:"categories" binding:"max=8"`
}

func (e *Env) CreateUser(c *gin.Context) {
	var input CreateUserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	user, err := e.Svc.CreateUser(input.Username, input.DisplayName)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (e *Env) GetUser(c *gin.Context) {
	user, err := e.Svc.GetUser(c.Param("userId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (e *Env) SetPreferences(c *gin.Context) {
	var input PreferencesInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	user, err := e.Svc.SetPreferences(currentUser(c), input.Categories)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (e *Env) Echo(c *gin.Context) {
	if err := e.Svc.Echo(currentUser(c), c.Param("userId")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"echoing": true})
}

func (e *Env) Unecho(c *gin.Context) {
	if err := e.Svc.Unecho(currentUser(c), c.Param("userId")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"echoing": false})
}

func (e *Env) GetEchoers(c *gin.Context) {
	page, limit := pageParams(c)
	users, err := e.Svc.Echoers(c.Param("userId"), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (e *Env) GetEchoing(c *gin.Context) {
	page, limit := pageParams(c)
	users, err := e.Svc.Echoing(c.Param("userId"), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}
