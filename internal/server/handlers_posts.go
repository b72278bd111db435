package server

import (
	"net/http"

	"blogd/internal/api"
)

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := s.posts.List(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, posts)
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	in, err := s.readPostInput(w, r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	post, err := s.posts.Create(r.Context(), in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.log().Info("post created", "post_id", post.ID)
	s.writeJSON(w, http.StatusCreated, post)
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathPostIDOrNotFound(w, r)
	if !ok {
		return
	}

	post, err := s.posts.Get(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, post)
}

func (s *Server) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathPostIDOrNotFound(w, r)
	if !ok {
		return
	}

	in, err := s.readPostInput(w, r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	post, err := s.posts.Update(r.Context(), id, in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.log().Info("post updated", "post_id", post.ID)
	s.writeJSON(w, http.StatusOK, post)
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathPostIDOrNotFound(w, r)
	if !ok {
		return
	}

	if _, err := s.posts.Delete(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.log().Info("post deleted", "post_id", id)
	s.writeJSON(w, http.StatusOK, api.MessageResponse{Message: api.PostDeletedMessage})
}
