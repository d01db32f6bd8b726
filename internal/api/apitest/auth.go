package apitest

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tgienger/stn/internal/models"
)

func (s *Server) register(c *gin.Context) {
	var reg models.Registration
	if !bind(c, &reg) {
		return
	}
	if err := models.Validate(reg); err != nil {
		abort(c, http.StatusBadRequest, "Invalid registration data")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[strings.ToLower(reg.Email)]; ok {
		abort(c, http.StatusConflict, "Email already registered")
		return
	}
	u := s.addAccount(reg.Email, reg.Username, reg.Password)
	writeJSON(c, http.StatusCreated, gin.H{"user": u})
}

func (s *Server) login(c *gin.Context) {
	var creds models.Credentials
	if !bind(c, &creds) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[strings.ToLower(creds.Email)]
	if !ok || acc.password != creds.Password {
		abort(c, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	http.SetCookie(c.Writer, s.openSession(acc.user.ID))
	writeJSON(c, http.StatusOK, gin.H{"user": acc.user})
}

func (s *Server) logout(c *gin.Context) {
	if token, err := c.Cookie(SessionCookie); err == nil {
		s.mu.Lock()
		delete(s.sessions, token)
		s.mu.Unlock()
	}
	http.SetCookie(c.Writer, &http.Cookie{Name: SessionCookie, Value: "", Path: "/", MaxAge: -1})
	writeJSON(c, http.StatusOK, gin.H{"message": "Logged out"})
}

func (s *Server) me(c *gin.Context) {
	uid := c.GetString("uid")
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acc := range s.accounts {
		if acc.user.ID == uid {
			writeJSON(c, http.StatusOK, acc.user)
			return
		}
	}
	abort(c, http.StatusUnauthorized, "Not authenticated")
}
