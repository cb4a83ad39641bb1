package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sujalbistaa/whisperwall/internal/models"
	"github.com/sujalbistaa/whisperwall/internal/service"
	"github.com/sujalbistaa/whisperwall/internal/ws"
)

// --- Structs for request binding ---
type CreatePostInput struct {
	Text       string             `json:"text" binding:"max=2000"`
	Media      []models.MediaItem `json:"media" binding:"max=10,dive"`
	Category   models.Category    `json:"category"`
	Visibility models.Visibility  `json:"visibility" binding:"omitempty,oneof=normal disguise"`
	VanishAt   *time.Time         `json:"vanishAt"`
}

type ReactionInput struct {
	ReactionType models.ReactionType `json:"reactionType" binding:"required"`
}

type CommentInput struct {
	Content string `json:"content" binding:"required,max=1000"`
}

// --- Handlers ---
type Env struct {
	Svc *service.Service
	Hub *ws.Hub
}

// pageParams reads ?page and ?limit; bad values fall back to the defaults.
func pageParams(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "0"))
	return page, limit
}

func (e *Env) Health(c *gin.Context) {
	sqlDB, err := e.Svc.DB().DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (e *Env) GetFeed(c *gin.Context) {
	page, limit := pageParams(c)
	items, err := e.Svc.Feed(currentUser(c), currentSession(c), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "page": page})
}

func (e *Env) CreatePost(c *gin.Context) {
	var input CreatePostInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	post, err := e.Svc.CreatePost(currentUser(c), service.NewPost{
		Text:       input.Text,
		Media:      input.Media,
		Category:   input.Category,
		Visibility: input.Visibility,
		VanishAt:   input.VanishAt,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

func (e *Env) GetPost(c *gin.Context) {
	post, err := e.Svc.GetPost(currentUser(c), c.Param("postId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (e *Env) GetUserPosts(c *gin.Context) {
	page, limit := pageParams(c)
	posts, err := e.Svc.ListUserPosts(currentUser(c), c.Param("userId"), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, posts)
}

func (e *Env) GetTrendingPosts(c *gin.Context) {
	posts, err := e.Svc.Trending(currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, posts)
}

func (e *Env) DeletePost(c *gin.Context) {
	if err := e.Svc.DeletePost(currentUser(c), c.Param("postId")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Post deleted"})
}

func (e *Env) HidePost(c *gin.Context) {
	if err := e.Svc.HidePost(currentUser(c), c.Param("postId"), false); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Post hidden successfully"})
}

func (e *Env) AdminHidePost(c *gin.Context) {
	if err := e.Svc.HidePost("", c.Param("postId"), true); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Post hidden successfully"})
}

func (e *Env) GetComments(c *gin.Context) {
	page, limit := pageParams(c)
	comments, err := e.Svc.ListComments(models.TargetPost, c.Param("postId"), currentUser(c), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, comments)
}

func (e *Env) AddComment(c *gin.Context) {
	var input CommentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	comment, err := e.Svc.AddComment(models.TargetPost, c.Param("postId"), currentUser(c), input.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// --- Reactions ---

func (e *Env) React(c *gin.Context) {
	var input ReactionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	state, err := e.Svc.AddReaction(models.TargetPost, c.Param("postId"), currentUser(c), input.ReactionType)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (e *Env) Unreact(c *gin.Context) {
	state, err := e.Svc.RemoveReaction(models.TargetPost, c.Param("postId"), currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (e *Env) GetReactors(c *gin.Context) {
	page, limit := pageParams(c)
	users, total, err := e.Svc.ListReactors(c.Param("postId"), models.ReactionType(c.Param("reactionType")), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users, "total": total, "page": page})
}

func (e *Env) ReactToComment(c *gin.Context) {
	var input ReactionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	state, err := e.Svc.ReactToComment(models.TargetPost, c.Param("postId"), c.Param("commentId"), currentUser(c), input.ReactionType)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (e *Env) UnreactComment(c *gin.Context) {
	state, err := e.Svc.UnreactComment(models.TargetPost, c.Param("postId"), c.Param("commentId"), currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}
