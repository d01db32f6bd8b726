package apitest

import (
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tgienger/stn/internal/models"
)

// ownedTag returns the tag when it belongs to the user. Caller holds s.mu.
func (s *Server) ownedTag(c *gin.Context, id string) (*models.Tag, bool) {
	t, ok := s.tags[id]
	if !ok || s.owner[id] != c.GetString("uid") {
		abort(c, http.StatusNotFound, "Tag not found")
		return nil, false
	}
	return t, true
}

// nameTaken reports whether the user already has a tag called name.
// Caller holds s.mu.
func (s *Server) nameTaken(uid, name, except string) bool {
	for id, t := range s.tags {
		if id != except && s.owner[id] == uid && strings.EqualFold(t.Name, name) {
			return true
		}
	}
	return false
}

func (s *Server) listTags(c *gin.Context) {
	uid := c.GetString("uid")
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Tag{}
	for id, t := range s.tags {
		if s.owner[id] == uid {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	writeJSON(c, http.StatusOK, out)
}

func (s *Server) createTag(c *gin.Context) {
	var data models.TagData
	if !bind(c, &data) {
		return
	}
	if data.Name == "" || models.Validate(data) != nil {
		abort(c, http.StatusBadRequest, "Invalid tag data")
		return
	}
	uid := c.GetString("uid")
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nameTaken(uid, data.Name, "") {
		abort(c, http.StatusConflict, "Tag already exists")
		return
	}
	t := &models.Tag{ID: uuid.NewString(), Name: data.Name, Color: data.Color}
	s.tags[t.ID] = t
	s.owner[t.ID] = uid
	writeJSON(c, http.StatusCreated, t)
}

func (s *Server) updateTag(c *gin.Context) {
	var data models.TagData
	if !bind(c, &data) {
		return
	}
	if models.Validate(data) != nil {
		abort(c, http.StatusBadRequest, "Invalid tag data")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.ownedTag(c, c.Param("id"))
	if !ok {
		return
	}
	if data.Name != "" {
		if s.nameTaken(c.GetString("uid"), data.Name, t.ID) {
			abort(c, http.StatusConflict, "Tag already exists")
			return
		}
		t.Name = data.Name
	}
	if data.Color != "" {
		t.Color = data.Color
	}
	writeJSON(c, http.StatusOK, t)
}

func (s *Server) deleteTag(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.ownedTag(c, c.Param("id"))
	if !ok {
		return
	}
	delete(s.tags, t.ID)
	delete(s.owner, t.ID)
	for _, n := range s.notes {
		kept := n.Tags[:0]
		for _, nt := range n.Tags {
			if nt.ID != t.ID {
				kept = append(kept, nt)
			}
		}
		n.Tags = kept
	}
	c.Status(http.StatusNoContent)
}
