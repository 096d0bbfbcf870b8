package normalize

import (
	"errors"
	"testing"

	"github.com/vodhub/backend/internal/repo"
	"github.com/vodhub/backend/internal/source"
	"github.com/vodhub/backend/pkg/status"
)

func TestNormalize(t *testing.T) {
	site := repo.SourceSite{Name: "cms1"}

	tests := []struct {
		name    string
		fields  map[string]string
		check   func(t *testing.T, rec *NormalizedRecord)
		wantErr error
	}{
		{
			name: "full record",
			fields: map[string]string{
				"vod_id":        "101",
				"vod_name":      "  示例片  ",
				"vod_year":      "2023",
				"vod_area":      "大陆",
				"vod_lang":      "国语",
				"vod_actor":     "张三,李四",
				"vod_director":  "王五",
				"vod_writer":    "赵六",
				"vod_content":   "一部示例影片。",
				"vod_class":     "动作,冒险",
				"vod_remarks":   "更新至10集",
				"vod_pic":       "https://img.example.com/101.jpg",
				"vod_play_from": "m3u8",
				"vod_play_url":  "第1集$https://v.example.com/1.m3u8#第2集$https://v.example.com/2.m3u8",
			},
			check: func(t *testing.T, rec *NormalizedRecord) {
				if rec.Title != "示例片" {
					t.Errorf("Title = %q, want trimmed 示例片", rec.Title)
				}
				if rec.ExternalID != "101" {
					t.Errorf("ExternalID = %q, want 101", rec.ExternalID)
				}
				if len(rec.Cast) != 2 || rec.Cast[0] != "张三" || rec.Cast[1] != "李四" {
					t.Errorf("Cast = %v, want [张三 李四]", rec.Cast)
				}
				if len(rec.Tags) != 2 {
					t.Errorf("Tags = %v, want 2 tags", rec.Tags)
				}
				if rec.PlayRoutes["第1集"] != "https://v.example.com/1.m3u8" {
					t.Errorf("PlayRoutes = %v, want first episode url under its label", rec.PlayRoutes)
				}
				if rec.SourceName != "cms1" {
					t.Errorf("SourceName = %q, want cms1", rec.SourceName)
				}
			},
		},
		{
			name:   "missing title rejected",
			fields: map[string]string{"vod_id": "5", "vod_year": "2020"},
			wantErr: ErrMalformedRecord,
		},
		{
			name:   "whitespace title rejected",
			fields: map[string]string{"vod_name": "   "},
			wantErr: ErrMalformedRecord,
		},
		{
			name:   "minimal record gets empty fields not nils",
			fields: map[string]string{"vod_name": "孤片"},
			check: func(t *testing.T, rec *NormalizedRecord) {
				if rec.Cast == nil || rec.Directors == nil || rec.Tags == nil {
					t.Error("person/tag slices must be empty, not nil")
				}
				if rec.PlayRoutes == nil {
					t.Error("PlayRoutes must be an empty map, not nil")
				}
				if len(rec.PlayRoutes) != 0 {
					t.Errorf("PlayRoutes = %v, want empty", rec.PlayRoutes)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := Normalize(source.RawRecord{Dialect: status.SourceCMS, Fields: tt.fields}, site)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Normalize() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Normalize() unexpected error: %v", err)
			}
			tt.check(t, rec)
		})
	}
}

func TestSplitPlayRoutes(t *testing.T) {
	tests := []struct {
		name     string
		playFrom string
		playURL  string
		want     map[string]string
	}{
		{
			name:     "labeled episodes keep first url per group",
			playFrom: "m3u8",
			playURL:  "第1集$https://v.example.com/1.m3u8#第2集$https://v.example.com/2.m3u8",
			want:     map[string]string{"第1集": "https://v.example.com/1.m3u8"},
		},
		{
			name:     "two route groups",
			playFrom: "m3u8$$$mp4",
			playURL:  "HD$https://a.example.com/hd.m3u8$$$HD$https://b.example.com/hd.mp4",
			want:     map[string]string{"HD": "https://b.example.com/hd.mp4"},
		},
		{
			name:     "bare url falls back to play_from label",
			playFrom: "qiyi",
			playURL:  "https://v.example.com/raw.m3u8",
			want:     map[string]string{"qiyi": "https://v.example.com/raw.m3u8"},
		},
		{
			name:     "bare url with no play_from gets default label",
			playFrom: "",
			playURL:  "https://v.example.com/raw.m3u8",
			want:     map[string]string{DefaultRoute: "https://v.example.com/raw.m3u8"},
		},
		{
			name:     "empty play_url yields no routes",
			playFrom: "m3u8",
			playURL:  "",
			want:     map[string]string{},
		},
		{
			name:     "semicolon separated entries",
			playFrom: "",
			playURL:  "EP1$https://v.example.com/1.mp4;EP2$https://v.example.com/2.mp4",
			want:     map[string]string{"EP1": "https://v.example.com/1.mp4"},
		},
		{
			name:     "double dollar entry separator",
			playFrom: "",
			playURL:  "线路一$$https://v.example.com/a.m3u8",
			want:     map[string]string{"线路一": "https://v.example.com/a.m3u8"},
		},
		{
			name:     "empty group between separators skipped",
			playFrom: "a$$$b",
			playURL:  "$$$L$https://v.example.com/b.m3u8",
			want:     map[string]string{"L": "https://v.example.com/b.m3u8"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitPlayRoutes(tt.playFrom, tt.playURL)
			if len(got) != len(tt.want) {
				t.Fatalf("SplitPlayRoutes() = %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("route %q = %q, want %q", k, got[k], v)
				}
			}
		})
	}
}

func TestSplitPersons(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"ascii comma", "A,B", []string{"A", "B"}},
		{"chinese comma", "张三，李四", []string{"张三", "李四"}},
		{"chinese enumeration mark", "张三、李四", []string{"张三", "李四"}},
		{"slash", "A/B/C", []string{"A", "B", "C"}},
		{"mixed with blanks", "A, ,B", []string{"A", "B"}},
		{"empty", "", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitPersons(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("splitPersons(%q) = %v, want %v", tt.in, got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("splitPersons(%q)[%d] = %q, want %q", tt.in, i, got[i], tt.want[i])
				}
			}
		})
	}
}
