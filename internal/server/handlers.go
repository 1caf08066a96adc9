package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"evalcoach/internal/assist"
	"evalcoach/internal/candidate"
	"evalcoach/internal/llm"
	"evalcoach/internal/storage"
	"evalcoach/internal/worklog"
)

// Operator-facing messages. The UI shows these verbatim.
const (
	msgBadJSON       = "잘못된 JSON 요청입니다."
	msgMissingItem   = "item payload가 필요합니다."
	msgNoAPIKey      = "GOOGLE_GENERATIVE_AI_API_KEY 또는 OPENAI_API_KEY 환경 변수를 설정해 주세요."
	msgEmptyAI       = "AI 응답이 비어 있습니다. 잠시 후 다시 시도해 주세요."
	msgRefineFailed  = "AI 문장 다듬기 중 오류가 발생했습니다."
	msgOrganizeError = "시즌 정리 생성 중 오류가 발생했습니다."
	msgCoachError    = "후보 상담 중 오류가 발생했습니다."
)

func errorJSON(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

type refineRequest struct {
	Item *candidate.Candidate `json:"item"`
}

func (s *Server) handleRefine(c *gin.Context) {
	if !s.assist.Configured() {
		errorJSON(c, http.StatusInternalServerError, msgNoAPIKey)
		return
	}
	var req refineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, msgBadJSON)
		return
	}
	if req.Item == nil {
		errorJSON(c, http.StatusBadRequest, msgMissingItem)
		return
	}

	text, err := s.assist.Refine(c.Request.Context(), *req.Item)
	if err != nil {
		s.respondAssistError(c, err, msgRefineFailed)
		return
	}
	c.JSON(http.StatusOK, gin.H{"refinedText": text})
}

type organizeRequest struct {
	Year     int              `json:"year"`
	Season   worklog.Season   `json:"season"`
	Entries  []worklog.Entry  `json:"entries"`
	Folders  []worklog.Folder `json:"folders"`
	FolderID string           `json:"folderId"`
}

func (s *Server) handleOrganize(c *gin.Context) {
	if !s.assist.Configured() {
		errorJSON(c, http.StatusInternalServerError, msgNoAPIKey)
		return
	}
	var req organizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, msgBadJSON)
		return
	}
	if req.Season == "" {
		req.Season = worklog.SeasonAll
	}
	if !req.Season.Valid() {
		errorJSON(c, http.StatusBadRequest, msgBadJSON)
		return
	}

	entries := req.Entries
	if req.FolderID != "" {
		scope := worklog.DescendantFolderIDs(req.FolderID, req.Folders)
		scoped := make([]worklog.Entry, 0, len(entries))
		for _, entry := range entries {
			if scope[entry.FolderID] {
				scoped = append(scoped, entry)
			}
		}
		entries = scoped
	}
	entries = worklog.FilterSeason(entries, req.Year, req.Season)

	draft, err := s.assist.Organize(c.Request.Context(), req.Year, req.Season, entries)
	if err != nil {
		s.respondAssistError(c, err, msgOrganizeError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"draft": draft})
}

type candidatesRequest struct {
	Year    int              `json:"year"`
	Season  worklog.Season   `json:"season"`
	Entries []worklog.Entry  `json:"entries"`
	Folders []worklog.Folder `json:"folders"`
}

func (s *Server) handleCandidates(c *gin.Context) {
	var req candidatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, msgBadJSON)
		return
	}
	if req.Season == "" {
		req.Season = worklog.SeasonAll
	}
	if !req.Season.Valid() {
		errorJSON(c, http.StatusBadRequest, msgBadJSON)
		return
	}
	entries := worklog.FilterSeason(req.Entries, req.Year, req.Season)
	candidates := candidate.Build(entries, req.Folders)
	c.JSON(http.StatusOK, gin.H{"candidates": candidates})
}

type coachRequest struct {
	Mode             assist.CoachMode     `json:"mode"`
	UserMessage      string               `json:"userMessage"`
	Candidate        *candidate.Candidate `json:"candidate"`
	Entries          []worklog.Entry      `json:"entries"`
	Messages         []assist.ChatMessage `json:"messages"`
	CurrentCardCount int                  `json:"currentCardCount"`
	GeminiAPIKey     string               `json:"geminiApiKey"`
	GeminiModel      string               `json:"geminiModel"`
}

func (s *Server) handleCoach(c *gin.Context) {
	var req coachRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, msgBadJSON)
		return
	}
	if !s.assist.Configured() && strings.TrimSpace(req.GeminiAPIKey) == "" {
		errorJSON(c, http.StatusInternalServerError, msgNoAPIKey)
		return
	}
	if req.Mode == "" {
		req.Mode = assist.ModeKickoff
	}

	result, err := s.assist.Coach(c.Request.Context(), assist.CoachRequest{
		Mode:             req.Mode,
		UserMessage:      req.UserMessage,
		Candidate:        req.Candidate,
		Entries:          req.Entries,
		Messages:         req.Messages,
		CurrentCardCount: req.CurrentCardCount,
		Override: assist.ProviderOverride{
			GeminiAPIKey: req.GeminiAPIKey,
			GeminiModel:  req.GeminiModel,
		},
	})
	if err != nil {
		s.respondAssistError(c, err, msgCoachError)
		return
	}
	c.JSON(http.StatusOK, result)
}

// respondAssistError maps service failures onto the API status contract.
func (s *Server) respondAssistError(c *gin.Context, err error, fallback string) {
	var verr *assist.ValidationError
	switch {
	case errors.As(err, &verr):
		errorJSON(c, http.StatusBadRequest, verr.Message)
	case errors.Is(err, llm.ErrEmptyOutput):
		errorJSON(c, http.StatusBadGateway, msgEmptyAI)
	default:
		s.logger.Error("assist request failed: %v", err)
		errorJSON(c, http.StatusInternalServerError, fallback)
	}
}

func (s *Server) handleGetState(c *gin.Context) {
	namespace := c.Param("namespace")
	payload, ok, err := s.store.Get(c.Request.Context(), namespace)
	if err != nil {
		s.logger.Error("state read failed for %q: %v", namespace, err)
		errorJSON(c, http.StatusInternalServerError, "상태를 불러오지 못했습니다.")
		return
	}
	if !ok {
		errorJSON(c, http.StatusNotFound, "저장된 상태가 없습니다.")
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", payload)
}

func (s *Server) handlePutState(c *gin.Context) {
	namespace := c.Param("namespace")
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		errorJSON(c, http.StatusBadRequest, msgBadJSON)
		return
	}
	if err := s.store.Put(c.Request.Context(), namespace, body); err != nil {
		switch {
		case errors.Is(err, storage.ErrPayloadTooLarge):
			errorJSON(c, http.StatusRequestEntityTooLarge, "상태 데이터가 너무 큽니다.")
		case errors.Is(err, storage.ErrInvalidPayload):
			errorJSON(c, http.StatusBadRequest, msgBadJSON)
		default:
			s.logger.Error("state write failed for %q: %v", namespace, err)
			errorJSON(c, http.StatusInternalServerError, "상태를 저장하지 못했습니다.")
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handleDeleteState(c *gin.Context) {
	namespace := c.Param("namespace")
	if err := s.store.Delete(c.Request.Context(), namespace); err != nil {
		s.logger.Error("state delete failed for %q: %v", namespace, err)
		errorJSON(c, http.StatusInternalServerError, "상태를 삭제하지 못했습니다.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
