package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rileyhilliard/vitals/internal/errors"
	"github.com/rileyhilliard/vitals/internal/monitor"
)

// connectRequest is the POST /api/connect body.
type connectRequest struct {
	Host       string `json:"host"`
	Port       int    `json:"port"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	PrivateKey string `json:"privateKey"`
	Passphrase string `json:"passphrase"`
	OS         string `json:"os"`
}

type disconnectRequest struct {
	ConnectionID string `json:"connectionId"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, envelope{
		Success: true,
		Data: gin.H{
			"status":      "ok",
			"connections": s.reg.Len(),
		},
	})
}

func (s *Server) handleConnections(c *gin.Context) {
	c.JSON(http.StatusOK, envelope{Success: true, Data: s.reg.IDs()})
}

func (s *Server) handleConnect(c *gin.Context) {
	var req connectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.WrapWithCode(err, errors.ErrInvalidInput, "Malformed connect request", ""))
		return
	}

	platform, err := monitor.ParsePlatform(req.OS)
	if err != nil {
		respondError(c, err)
		return
	}

	id, err := s.reg.Open(c.Request.Context(), monitor.ConnectionConfig{
		Host:       req.Host,
		Port:       req.Port,
		Username:   req.Username,
		Password:   req.Password,
		PrivateKey: req.PrivateKey,
		Passphrase: req.Passphrase,
		OS:         platform,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, envelope{Success: true, ConnectionID: id})
}

func (s *Server) handleDisconnect(c *gin.Context) {
	s.disconnect(c, c.Param("connectionId"))
}

func (s *Server) handleDisconnectBody(c *gin.Context) {
	var req disconnectRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ConnectionID == "" {
		respondError(c, errors.New(errors.ErrInvalidInput, "connectionId is required", ""))
		return
	}
	s.disconnect(c, req.ConnectionID)
}

func (s *Server) disconnect(c *gin.Context, id string) {
	if err := s.reg.Close(id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, envelope{Success: true, Message: "Disconnected successfully"})
}

func (s *Server) handleMonitoringData(c *gin.Context) {
	id := c.Param("connectionId")

	snap, err := s.sampler.FetchSnapshot(c.Request.Context(), id)
	if err != nil {
		if !errors.IsCode(err, errors.ErrNotFound) {
			s.log.Warn("%s: fetch failed: %s", id, errors.Message(err))
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, envelope{Success: true, Data: snap})
}
