// Package worklog models the raw work-log domain: entries, the folder forest
// they hang off, and the season filter that scopes evaluation drafts.
package worklog

import (
	"fmt"
	"math/rand"
	"time"
)

// EntryType classifies a work-log entry.
type EntryType string

const (
	TypeEvent   EntryType = "이벤트"
	TypeProject EntryType = "프로젝트"
	TypeTask    EntryType = "태스크"
	TypeEtc     EntryType = "기타"
)

// EntryTypes lists the valid entry types in display order.
var EntryTypes = []EntryType{TypeEvent, TypeProject, TypeTask, TypeEtc}

// Valid reports whether t is one of the known entry types.
func (t EntryType) Valid() bool {
	switch t {
	case TypeEvent, TypeProject, TypeTask, TypeEtc:
		return true
	}
	return false
}

// Entry is one atomic, user-authored unit of work. The folder reference is
// weak: an entry whose folder vanishes is reparented, never deleted.
type Entry struct {
	ID            string    `json:"id"`
	FolderID      string    `json:"folderId,omitempty"`
	SortOrder     int64     `json:"sortOrder"`
	Title         string    `json:"title"`
	Type          EntryType `json:"type"`
	Date          string    `json:"date"` // completion date, YYYY-MM-DD
	DurationWeeks int       `json:"durationWeeks"`
	DurationDays  int       `json:"durationDays"`
	Context       string    `json:"context"`
	Result        string    `json:"result"`
	Metrics       string    `json:"metrics"`
	Tags          string    `json:"tags"`
	CreatedAt     string    `json:"createdAt"`
	UpdatedAt     string    `json:"updatedAt"`
}

// Folder is a named grouping node; a nil parent makes it a root of the forest.
type Folder struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ParentID  string `json:"parentId,omitempty"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// Season scopes entries to a half-year window.
type Season string

const (
	SeasonAll Season = "all"
	SeasonH1  Season = "h1"
	SeasonH2  Season = "h2"
)

// Valid reports whether s is a known season value.
func (s Season) Valid() bool {
	return s == SeasonAll || s == SeasonH1 || s == SeasonH2
}

// Label returns the Korean display label for the season.
func (s Season) Label() string {
	switch s {
	case SeasonH1:
		return "상반기"
	case SeasonH2:
		return "하반기"
	default:
		return "연간"
	}
}

// DefaultFolderName is the fallback folder created whenever the forest is empty.
const DefaultFolderName = "기본 폴더"

func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func todayISODate() string {
	return time.Now().UTC().Format("2006-01-02")
}

// NewFolderID returns a fresh folder identifier.
func NewFolderID() string {
	return fmt.Sprintf("folder-%d-%05d", time.Now().UnixMilli(), rand.Intn(100000))
}

// NewEntryID returns a fresh entry identifier.
func NewEntryID() string {
	return fmt.Sprintf("work-%d-%05d", time.Now().UnixMilli(), rand.Intn(100000))
}

// NewFolder creates a folder with the given name under parentID ("" = root).
func NewFolder(name, parentID string) Folder {
	if name == "" {
		name = DefaultFolderName
	}
	now := nowISO()
	return Folder{
		ID:        NewFolderID(),
		Name:      name,
		ParentID:  parentID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewEntry creates an empty entry in the given folder, dated today.
func NewEntry(folderID string) Entry {
	now := nowISO()
	return Entry{
		ID:            NewEntryID(),
		FolderID:      folderID,
		SortOrder:     time.Now().UnixMilli(),
		Title:         "",
		Type:          TypeTask,
		Date:          todayISODate(),
		DurationWeeks: 0,
		DurationDays:  1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// InSeason reports whether the entry's completion month falls in the season.
func InSeason(entry Entry, season Season) bool {
	if season == SeasonAll {
		return true
	}
	if len(entry.Date) < 7 {
		return false
	}
	var month int
	if _, err := fmt.Sscanf(entry.Date[5:7], "%d", &month); err != nil {
		return false
	}
	if season == SeasonH1 {
		return month >= 1 && month <= 6
	}
	return month >= 7 && month <= 12
}

// FilterSeason returns the entries completed in the given year and season.
func FilterSeason(entries []Entry, year int, season Season) []Entry {
	out := make([]Entry, 0, len(entries))
	prefix := fmt.Sprintf("%04d", year)
	for _, entry := range entries {
		if len(entry.Date) < 4 || entry.Date[:4] != prefix {
			continue
		}
		if InSeason(entry, season) {
			out = append(out, entry)
		}
	}
	return out
}

// DescendantFolderIDs collects folderID plus every folder beneath it.
func DescendantFolderIDs(folderID string, folders []Folder) map[string]bool {
	byParent := make(map[string][]string)
	for _, folder := range folders {
		if folder.ParentID == "" {
			continue
		}
		byParent[folder.ParentID] = append(byParent[folder.ParentID], folder.ID)
	}

	ids := map[string]bool{folderID: true}
	stack := []string{folderID}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, childID := range byParent[current] {
			if !ids[childID] {
				ids[childID] = true
				stack = append(stack, childID)
			}
		}
	}
	return ids
}
