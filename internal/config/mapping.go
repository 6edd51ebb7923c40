package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Alias lists the header spellings that merge into one canonical column.
// A header matches when it contains any of Names.
type Alias struct {
	Column string   `json:"column" yaml:"column"`
	Names  []string `json:"names" yaml:"names"`
}

// Mapping holds the column tables used by the pipeline steps.
type Mapping struct {
	// Aliases canonicalize panel headers during merge, in priority order.
	Aliases []Alias `json:"aliases" yaml:"aliases"`
	// Important columns lead the integrated file.
	Important []string `json:"important" yaml:"important"`
	// Rename maps integrated headers to their English field names.
	Rename map[string]string `json:"rename" yaml:"rename"`
	// Priority columns lead the renamed file.
	Priority []string `json:"priority" yaml:"priority"`
	// Sheets maps Google Sheets headers to field names.
	Sheets map[string]string `json:"sheets" yaml:"sheets"`
}

// DefaultMapping returns the tables for the K-Beauty panel exports.
func DefaultMapping() Mapping {
	return Mapping{
		Aliases: []Alias{
			{"이메일", []string{"이메일", "email", "Email"}},
			{"이름", []string{"이름", "name", "Name"}},
			{"전화번호", []string{"전화번호", "연락처", "phone", "Phone"}},
			{"성별", []string{"성별", "gender", "Gender"}},
			{"생년", []string{"생년", "생년월일", "birth", "Birth"}},
			{"국적", []string{"국적", "nationality", "Nationality"}},
			{"문화권", []string{"문화권", "culture", "Culture"}},
			{"인종", []string{"인종", "race", "Race"}},
			{"비자", []string{"비자", "visa", "Visa"}},
			{"예약 지점", []string{"예약 지점", "예약지점", "location", "Location"}},
			{"예약 날짜", []string{"예약 날짜", "예약날짜", "date", "Date"}},
			{"예약시간", []string{"예약시간", "예약 시간", "time", "Time"}},
			{"참여여부결과", []string{"참여여부결과", "참여여부", "participation", "Participation"}},
			{"확정 여부", []string{"확정 여부", "확정여부", "confirmed", "Confirmed"}},
			{"비고", []string{"비고", "note", "Note", "첨언"}},
		},
		Important: []string{
			"이메일", "이름", "전화번호", "성별", "생년", "국적", "문화권",
			"인종", "비자", "예약 지점", "예약 날짜", "예약시간",
			"참여여부결과", "확정 여부", "비고",
		},
		Rename: map[string]string{
			"이메일":         "UID",
			"전화번호":        "email",
			"전화번호.1":      "phone",
			"응답시간":        "application_date",
			"Unnamed: 13": "remarks",
			"Unnamed: 26": "requested_content",
			"이름":          "name",
			"성별":          "gender",
			"생년":          "birth_year",
			"국적":          "nationality",
			"문화권":         "culture_region",
			"인종":          "ethnicity",
			"비자":          "visa_type",
			"예약 지점":       "reservation_location",
			"예약 날짜":       "reservation_date",
			"예약시간":        "reservation_time",
			"예약 시간":       "reservation_time_alt",
			"참여여부결과":      "participation_result",
			"확정 여부":       "confirmation_status",
			"비고":          "notes",
			"수령 방식":       "receipt_method",
			"연락방법":        "contact_method",
			"연락처":         "contact_info",
			"최초 응대":       "first_response",
			"최초 등록 여부":    "first_registration",
			"추천인 코드":      "referral_code",
			"첨언":          "additional_notes",
			"신청 날짜":       "request_date",
		},
		Priority: []string{
			"UID", "name", "email", "phone", "gender", "birth_year",
			"nationality", "culture_region", "ethnicity", "visa_type",
			"reservation_location", "reservation_date", "reservation_time",
			"participation_result", "confirmation_status",
			"application_date", "match_key", "match_type",
			"match_confidence", "match_id", "match_reason",
		},
		Sheets: map[string]string{
			"이름":    "name",
			"성함":    "name",
			"전화번호":  "phone",
			"휴대폰":   "phone",
			"연락처":   "phone",
			"이메일":   "email",
			"성별":    "gender",
			"생년월일":  "birth_date",
			"나이":    "age",
			"예약일":   "reservation_date",
			"예약날짜":  "reservation_date",
			"예약시간":  "reservation_time_slot",
			"시간대":   "reservation_time_slot",
			"예약지점":  "reservation_location",
			"지점":    "reservation_location",
			"위치":    "reservation_location",
			"참여여부":  "participation_result",
			"참여상태":  "participation_result",
			"상태":    "participation_result",
			"확정여부":  "confirmation_status",
			"확정상태":  "confirmation_status",
			"메모":    "notes",
			"비고":    "notes",
			"특이사항":  "notes",
			"가입경로":  "signup_channel",
			"신청경로":  "signup_channel",
			"데이터소스": "data_source",
			"소스":    "data_source",
		},
	}
}

// LoadMapping reads a JSON or YAML mapping file, chosen by extension. Tables
// missing from the file keep their defaults. An empty path returns the
// defaults.
func LoadMapping(path string) (Mapping, error) {
	m := DefaultMapping()
	if path == "" {
		return m, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Mapping{}, fmt.Errorf("read mapping: %w", err)
	}

	var file Mapping
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &file)
	case ".json":
		err = json.Unmarshal(data, &file)
	default:
		return Mapping{}, fmt.Errorf("mapping %s: unsupported extension", path)
	}
	if err != nil {
		return Mapping{}, fmt.Errorf("parse mapping %s: %w", path, err)
	}

	if len(file.Aliases) > 0 {
		m.Aliases = file.Aliases
	}
	if len(file.Important) > 0 {
		m.Important = file.Important
	}
	if len(file.Rename) > 0 {
		m.Rename = file.Rename
	}
	if len(file.Priority) > 0 {
		m.Priority = file.Priority
	}
	if len(file.Sheets) > 0 {
		m.Sheets = file.Sheets
	}
	return m, nil
}
