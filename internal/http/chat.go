package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sujalbistaa/whisperwall/internal/models"
)

type MessageInput struct {
	Text  string             `json:"text" binding:"max=4000"`
	Media []models.MediaItem `json:"media" binding:"max=10,dive"`
}

type EditMessageInput struct {
	Text string `json:"text" binding:"required,max=4000"`
}

type MessageReactionInput struct {
	Emoji string `json:"emoji" binding:"required,max=16"`
}

func (e *Env) GetConversations(c *gin.Context) {
	convs, err := e.Svc.Conversations(currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if e.Hub != nil {
		for i := range convs {
			convs[i].PeerOnline = e.Hub.Online(convs[i].Peer.ID)
		}
	}
	c.JSON(http.StatusOK, convs)
}

func (e *Env) GetMessages(c *gin.Context) {
	page, limit := pageParams(c)
	msgs, err := e.Svc.Messages(currentUser(c), c.Param("peerId"), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, msgs)
}

func (e *Env) SendMessage(c *gin.Context) {
	var input MessageInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	msg, err := e.Svc.SendMessage(currentUser(c), c.Param("peerId"), input.Text, input.Media)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (e *Env) MarkRead(c *gin.Context) {
	n, err := e.Svc.MarkRead(currentUser(c), c.Param("peerId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}

func (e *Env) EditMessage(c *gin.Context) {
	var input EditMessageInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	msg, err := e.Svc.EditMessage(currentUser(c), c.Param("peerId"), c.Param("messageId"), input.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

func (e *Env) DeleteMessage(c *gin.Context) {
	if err := e.Svc.DeleteMessage(currentUser(c), c.Param("peerId"), c.Param("messageId")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Message deleted"})
}

func (e *Env) ReactToMessage(c *gin.Context) {
	var input MessageReactionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	res, err := e.Svc.ReactToMessage(currentUser(c), c.Param("peerId"), c.Param("messageId"), input.Emoji)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
