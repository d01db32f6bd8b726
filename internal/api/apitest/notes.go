package apitest

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tgienger/stn/internal/models"
)

// view returns the response form of a stored note. Caller holds s.mu.
func (s *Server) view(n *models.Note, withChildren bool) models.Note {
	out := n.Clone()
	out.Tags = nil
	for _, t := range n.Tags {
		if tag, ok := s.tags[t.ID]; ok {
			out.Tags = append(out.Tags, *tag)
		}
	}
	out.Children = nil
	if withChildren {
		children := []models.Note{}
		for _, c := range s.notes {
			if !c.IsArchived && c.ParentIs(&n.ID) {
				children = append(children, s.view(c, false))
			}
		}
		sortNotes(children)
		out.Children = children
	}
	return out
}

// owned returns the note when it belongs to the user. Caller holds s.mu.
func (s *Server) owned(c *gin.Context, id string) (*models.Note, bool) {
	n, ok := s.notes[id]
	if !ok || (n.AuthorID != "" && n.AuthorID != c.GetString("uid")) {
		abort(c, http.StatusNotFound, "Note not found")
		return nil, false
	}
	return n, true
}

func parseFilters(c *gin.Context) (models.NoteFilters, bool) {
	var f models.NoteFilters
	if v := c.Query("status"); v != "" {
		st := models.NoteStatus(v)
		if !st.Valid() {
			abort(c, http.StatusBadRequest, "Invalid status filter")
			return f, false
		}
		f.Status = &st
	}
	if v := c.Query("priority"); v != "" {
		p := models.NotePriority(v)
		if !p.Valid() {
			abort(c, http.StatusBadRequest, "Invalid priority filter")
			return f, false
		}
		f.Priority = &p
	}
	if v := c.Query("tags"); v != "" {
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				f.Tags = append(f.Tags, t)
			}
		}
	}
	return f, true
}

func (s *Server) listNotes(c *gin.Context) {
	filters, ok := parseFilters(c)
	if !ok {
		return
	}
	uid := c.GetString("uid")
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Note{}
	for _, n := range s.notes {
		if n.IsArchived || (n.AuthorID != "" && n.AuthorID != uid) {
			continue
		}
		if !filters.Match(*n) {
			continue
		}
		out = append(out, s.view(n, true))
	}
	sortNotes(out)
	writeJSON(c, http.StatusOK, out)
}

func (s *Server) listArchived(c *gin.Context) {
	uid := c.GetString("uid")
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Note{}
	for _, n := range s.notes {
		if n.IsArchived && (n.AuthorID == "" || n.AuthorID == uid) {
			out = append(out, s.view(n, false))
		}
	}
	sortNotes(out)
	writeJSON(c, http.StatusOK, out)
}

func (s *Server) getNote(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.owned(c, c.Param("id"))
	if !ok {
		return
	}
	writeJSON(c, http.StatusOK, s.view(n, true))
}

func (s *Server) createNote(c *gin.Context) {
	var data models.CreateNoteData
	if !bind(c, &data) {
		return
	}
	if err := models.Validate(data); err != nil {
		abort(c, http.StatusBadRequest, "Title is required")
		return
	}
	uid := c.GetString("uid")
	s.mu.Lock()
	defer s.mu.Unlock()
	if data.ParentID != nil {
		if _, ok := s.owned(c, *data.ParentID); !ok {
			return
		}
	}

	// new notes go last among their siblings
	pos := 0.0
	for _, n := range s.notes {
		if n.ParentIs(data.ParentID) && n.Position+1 > pos {
			pos = n.Position + 1
		}
	}
	now := s.now()
	n := &models.Note{
		ID:        uuid.NewString(),
		Title:     data.Title,
		Content:   data.Content,
		Position:  pos,
		Status:    models.StatusNotStarted,
		AuthorID:  uid,
		ParentID:  data.ParentID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.notes[n.ID] = n
	writeJSON(c, http.StatusCreated, s.view(n, true))
}

// isAncestor reports whether ancestorID sits on the parent chain of id.
// Caller holds s.mu.
func (s *Server) isAncestor(ancestorID, id string) bool {
	seen := map[string]bool{}
	for cur := id; cur != "" && !seen[cur]; {
		if cur == ancestorID {
			return true
		}
		seen[cur] = true
		n, ok := s.notes[cur]
		if !ok || n.ParentID == nil {
			return false
		}
		cur = *n.ParentID
	}
	return false
}

func (s *Server) updateNote(c *gin.Context) {
	var data models.UpdateNoteData
	if !bind(c, &data) {
		return
	}
	if err := data.Validate(); err != nil {
		abort(c, http.StatusBadRequest, "Invalid note data")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.owned(c, c.Param("id"))
	if !ok {
		return
	}
	if data.ParentID.Value != nil {
		target := *data.ParentID.Value
		if _, exists := s.notes[target]; !exists {
			abort(c, http.StatusBadRequest, "Parent note not found")
			return
		}
		if s.isAncestor(n.ID, target) {
			abort(c, http.StatusBadRequest, "Cannot move a note into its own descendant")
			return
		}
	}
	var tags []models.Tag
	if data.Tags != nil {
		tags = []models.Tag{}
		for _, id := range data.Tags {
			t, exists := s.tags[id]
			if !exists {
				abort(c, http.StatusBadRequest, "Unknown tag")
				return
			}
			tags = append(tags, *t)
		}
	}

	data.ApplyTo(n)
	if data.Tags != nil {
		n.Tags = tags
	}
	n.UpdatedAt = s.now()
	writeJSON(c, http.StatusOK, s.view(n, true))
}

func (s *Server) archiveNote(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.owned(c, c.Param("id"))
	if !ok {
		return
	}
	n.IsArchived = true
	n.UpdatedAt = s.now()
	writeJSON(c, http.StatusOK, gin.H{"message": "Note archived"})
}

func (s *Server) restoreNote(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.owned(c, c.Param("id"))
	if !ok {
		return
	}
	n.IsArchived = false
	n.UpdatedAt = s.now()
	writeJSON(c, http.StatusOK, s.view(n, true))
}

func (s *Server) deleteNote(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.owned(c, c.Param("id"))
	if !ok {
		return
	}
	if !n.IsArchived {
		abort(c, http.StatusBadRequest, "Only archived notes can be deleted")
		return
	}
	delete(s.notes, n.ID)
	// children move to the top level
	for _, child := range s.notes {
		if child.ParentIs(&n.ID) {
			child.ParentID = nil
		}
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) reorderNotes(c *gin.Context) {
	var data models.ReorderNotesData
	if !bind(c, &data) {
		return
	}
	if err := models.Validate(data); err != nil {
		abort(c, http.StatusBadRequest, "Invalid reorder data")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range data.Notes {
		if _, ok := s.owned(c, it.ID); !ok {
			return
		}
	}
	for _, it := range data.Notes {
		s.notes[it.ID].Position = it.Position
	}
	writeJSON(c, http.StatusOK, gin.H{"message": "Notes reordered"})
}
