package worklog

import "strings"

// Sample ID prefixes mark demo data so it can be removed selectively.
const (
	sampleFolderPrefix = "folder-sample-"
	sampleEntryPrefix  = "work-sample-"
)

func sampleFolder(suffix, name string) Folder {
	return Folder{
		ID:        sampleFolderPrefix + suffix,
		Name:      name,
		CreatedAt: "2025-07-01T09:00:00Z",
		UpdatedAt: "2025-12-20T09:00:00Z",
	}
}

func sampleEntry(suffix, folderSuffix string, order int64, e Entry) Entry {
	e.ID = sampleEntryPrefix + suffix
	e.FolderID = sampleFolderPrefix + folderSuffix
	e.SortOrder = order
	e.CreatedAt = "2025-07-01T09:00:00Z"
	e.UpdatedAt = e.Date + "T09:00:00Z"
	return e
}

// SampleState returns a deterministic first-run demo data set: three folders
// with representative entries spanning the 2025 second half.
func SampleState() State {
	folders := []Folder{
		sampleFolder("system", "[샘플] 시스템 개선"),
		sampleFolder("customer", "[샘플] 고객 대응"),
		sampleFolder("team", "[샘플] 팀 역량 강화"),
	}

	entries := []Entry{
		sampleEntry("sys-01", "system", 1, Entry{
			Title: "레거시 API v2 마이그레이션", Type: TypeProject, Date: "2025-07-25",
			DurationWeeks: 4,
			Context:       "기존 v1 API의 성능 한계로 v2 전환이 시급했음. 주요 클라이언트와 일정 조율 후 단계적 마이그레이션 진행.",
			Result:        "v2 API 전환 완료. 응답 속도 40% 개선, 에러율 0.3%→0.05% 감소.",
			Metrics:       "API 응답 속도 40% 개선, 에러율 83% 감소",
			Tags:          "API, 마이그레이션, 백엔드",
		}),
		sampleEntry("sys-02", "system", 2, Entry{
			Title: "CI/CD 파이프라인 최적화", Type: TypeTask, Date: "2025-08-15",
			DurationWeeks: 1, DurationDays: 3,
			Context: "빌드 시간이 길어 배포 주기가 늦어지는 문제를 개선.",
			Result:  "평균 빌드 시간 22분에서 9분으로 단축.",
			Metrics: "빌드 시간 59% 단축",
			Tags:    "CI/CD, 인프라",
		}),
		sampleEntry("cus-01", "customer", 1, Entry{
			Title: "VOC 분류 자동화", Type: TypeProject, Date: "2025-09-30",
			DurationWeeks: 3,
			Context:       "수작업 VOC 분류로 대응 지연이 누적되어 자동 분류 체계를 도입.",
			Result:        "1차 응답 시간 48시간에서 6시간으로 단축.",
			Metrics:       "1차 응답 시간 87% 단축",
			Tags:          "VOC, 고객",
		}),
		sampleEntry("cus-02", "customer", 2, Entry{
			Title: "분기 고객 간담회 운영", Type: TypeEvent, Date: "2025-11-14",
			DurationDays: 2,
			Context:      "주요 고객사 대상 분기 간담회를 기획하고 운영.",
			Result:       "참석률 92%, 후속 과제 12건 도출.",
			Tags:         "간담회, 고객",
		}),
		sampleEntry("team-01", "team", 1, Entry{
			Title: "주니어 온보딩 가이드 정비", Type: TypeTask, Date: "2025-10-10",
			DurationWeeks: 2,
			Context:       "온보딩 기간 편차가 커서 표준 가이드와 체크리스트를 정비.",
			Result:        "신규 입사자 램프업 기간 6주에서 4주로 단축.",
			Metrics:       "램프업 기간 33% 단축",
			Tags:          "온보딩, 교육",
		}),
	}

	return State{Folders: folders, Entries: entries}
}

// IsSampleID reports whether an id belongs to the bundled sample data.
func IsSampleID(id string) bool {
	return strings.HasPrefix(id, sampleFolderPrefix) || strings.HasPrefix(id, sampleEntryPrefix)
}

// RemoveSampleData strips bundled sample folders and entries from the state,
// then re-normalizes so the remaining document stays valid.
func RemoveSampleData(state State) State {
	folders := make([]Folder, 0, len(state.Folders))
	for _, folder := range state.Folders {
		if !IsSampleID(folder.ID) {
			folders = append(folders, folder)
		}
	}
	entries := make([]Entry, 0, len(state.Entries))
	for _, entry := range state.Entries {
		if !IsSampleID(entry.ID) {
			entries = append(entries, entry)
		}
	}
	return Normalize(State{Folders: folders, Entries: entries})
}
