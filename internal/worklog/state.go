package worklog

import "time"

// State is the durable work-log document: the folder forest plus every entry.
// It round-trips as one JSON blob in the state store.
type State struct {
	Folders []Folder `json:"folders"`
	Entries []Entry  `json:"entries"`
}

// NewState returns a minimal valid state: one default folder with one entry.
func NewState() State {
	root := NewFolder(DefaultFolderName, "")
	return State{
		Folders: []Folder{root},
		Entries: []Entry{NewEntry(root.ID)},
	}
}

// Normalize repairs a state so its invariants hold:
//   - at least one folder exists (recreated when the forest is empty)
//   - every entry points at an existing folder (orphans reparent to the first folder)
//   - durations are non-negative and sort orders usable
//   - at least one entry exists
//
// It returns the repaired state; the input is not mutated.
func Normalize(state State) State {
	folders := append([]Folder(nil), state.Folders...)
	entries := append([]Entry(nil), state.Entries...)

	if len(folders) == 0 {
		folders = []Folder{NewFolder(DefaultFolderName, "")}
	}

	validFolders := make(map[string]bool, len(folders))
	for _, folder := range folders {
		validFolders[folder.ID] = true
	}
	fallbackID := folders[0].ID

	for i := range entries {
		entry := &entries[i]
		if entry.FolderID == "" || !validFolders[entry.FolderID] {
			entry.FolderID = fallbackID
			entry.UpdatedAt = nowISO()
		}
		entry.DurationWeeks = NormalizeDuration(entry.DurationWeeks, 0)
		entry.DurationDays = NormalizeDuration(entry.DurationDays, 1)
		if !entry.Type.Valid() {
			entry.Type = TypeTask
		}
		if entry.SortOrder == 0 {
			entry.SortOrder = time.Now().UnixMilli()
		}
	}

	if len(entries) == 0 {
		entries = []Entry{NewEntry(fallbackID)}
	}

	return State{Folders: folders, Entries: entries}
}

// DeleteFolder removes the folder and its whole descendant subtree from the
// forest, reparenting every entry in that subtree to a fallback folder. If the
// deletion empties the forest a default folder is recreated first, so entries
// always land somewhere.
func DeleteFolder(state State, folderID string) State {
	removing := DescendantFolderIDs(folderID, state.Folders)

	folders := make([]Folder, 0, len(state.Folders))
	for _, folder := range state.Folders {
		if !removing[folder.ID] {
			folders = append(folders, folder)
		}
	}

	var fallbackID string
	if len(folders) == 0 {
		recreated := NewFolder(DefaultFolderName, "")
		folders = []Folder{recreated}
		fallbackID = recreated.ID
	} else {
		fallbackID = folders[0].ID
	}

	entries := make([]Entry, 0, len(state.Entries))
	for _, entry := range state.Entries {
		if entry.FolderID != "" && removing[entry.FolderID] {
			entry.FolderID = fallbackID
			entry.UpdatedAt = nowISO()
		}
		entries = append(entries, entry)
	}

	return State{Folders: folders, Entries: entries}
}

// FolderMap indexes folders by id.
func FolderMap(folders []Folder) map[string]Folder {
	out := make(map[string]Folder, len(folders))
	for _, folder := range folders {
		out[folder.ID] = folder
	}
	return out
}
