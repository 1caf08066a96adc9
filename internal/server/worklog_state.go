package server

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"evalcoach/internal/worklog"
)

// stateNamespace is the blob the work-log document lives under.
const stateNamespace = "work-log"

// loadWorkLogState reads the stored document. First run seeds the sample
// data so the UI has something to show.
func (s *Server) loadWorkLogState(c *gin.Context) (worklog.State, bool) {
	payload, ok, err := s.store.Get(c.Request.Context(), stateNamespace)
	if err != nil {
		s.logger.Error("work-log state read failed: %v", err)
		errorJSON(c, http.StatusInternalServerError, "업무 기록을 불러오지 못했습니다.")
		return worklog.State{}, false
	}
	if !ok {
		state := worklog.SampleState()
		if !s.saveWorkLogState(c, state) {
			return worklog.State{}, false
		}
		return state, true
	}

	var state worklog.State
	if err := json.Unmarshal(payload, &state); err != nil {
		s.logger.Error("work-log state is corrupt, resetting: %v", err)
		state = worklog.NewState()
		if !s.saveWorkLogState(c, state) {
			return worklog.State{}, false
		}
	}
	return worklog.Normalize(state), true
}

func (s *Server) saveWorkLogState(c *gin.Context, state worklog.State) bool {
	payload, err := json.Marshal(state)
	if err != nil {
		s.logger.Error("work-log state marshal failed: %v", err)
		errorJSON(c, http.StatusInternalServerError, "업무 기록을 저장하지 못했습니다.")
		return false
	}
	if err := s.store.Put(c.Request.Context(), stateNamespace, payload); err != nil {
		s.logger.Error("work-log state write failed: %v", err)
		errorJSON(c, http.StatusInternalServerError, "업무 기록을 저장하지 못했습니다.")
		return false
	}
	return true
}

func (s *Server) handleGetWorkLogState(c *gin.Context) {
	state, ok := s.loadWorkLogState(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, state)
}

func (s *Server) handlePutWorkLogState(c *gin.Context) {
	var state worklog.State
	if err := c.ShouldBindJSON(&state); err != nil {
		errorJSON(c, http.StatusBadRequest, msgBadJSON)
		return
	}
	state = worklog.Normalize(state)
	if !s.saveWorkLogState(c, state) {
		return
	}
	c.JSON(http.StatusOK, state)
}

func (s *Server) handleDeleteWorkLogFolder(c *gin.Context) {
	state, ok := s.loadWorkLogState(c)
	if !ok {
		return
	}
	state = worklog.DeleteFolder(state, c.Param("id"))
	if !s.saveWorkLogState(c, state) {
		return
	}
	c.JSON(http.StatusOK, state)
}

func (s *Server) handleDeleteSampleData(c *gin.Context) {
	state, ok := s.loadWorkLogState(c)
	if !ok {
		return
	}
	state = worklog.RemoveSampleData(state)
	if !s.saveWorkLogState(c, state) {
		return
	}
	c.JSON(http.StatusOK, state)
}
