// internal/inventory/domain.go
package inventory

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrNotFound    = errors.New("book not found")
	ErrInvalidBook = errors.New("invalid book")
)

// DefaultCoverImage is shown for books created without a cover.
const DefaultCoverImage = "https://placehold.co/300x400.png"

// Band partitions the catalog into cohorts.
type Band string

const (
	BandA Band = "A"
	BandB Band = "B"
	BandC Band = "C"
	BandD Band = "D"
	BandE Band = "E"
	BandF Band = "F"
)

var AllBands = []Band{BandA, BandB, BandC, BandD, BandE, BandF}

func (b Band) Valid() bool {
	for _, known := range AllBands {
		if b == known {
			return true
		}
	}
	return false
}

// ParseBand accepts a band letter in either case.
func ParseBand(s string) (Band, error) {
	b := Band(strings.ToUpper(strings.TrimSpace(s)))
	if !b.Valid() {
		return "", fmt.Errorf("%w: unknown band %q", ErrInvalidBook, s)
	}
	return b, nil
}

// Module is one of the four curriculum modules.
type Module int

const (
	ModuleCreatorDivineGuidance Module = iota + 1
	ModuleRasulullahAimmah
	ModuleGhaybahSelfPurification
	ModuleWellbeingHereafter
)

var AllModules = []Module{
	ModuleCreatorDivineGuidance,
	ModuleRasulullahAimmah,
	ModuleGhaybahSelfPurification,
	ModuleWellbeingHereafter,
}

var moduleLabels = map[Module]string{
	ModuleCreatorDivineGuidance:   "1&2 - Creator And His Creation, Divine Guidance",
	ModuleRasulullahAimmah:        "3&4 - Rasulullah (SAW) Communcating The Message, A'immah (AS) Safeguarding The Message",
	ModuleGhaybahSelfPurification: "5&6 - Upholding The Message During Ghaybah, Roadmap to Self-Purification",
	ModuleWellbeingHereafter:      "7&8 - Societal Wellbeing, The Hereafter - Return to The Creator",
}

func (m Module) Valid() bool {
	_, ok := moduleLabels[m]
	return ok
}

// Label is the display name; unknown modules render as their number.
func (m Module) Label() string {
	if label, ok := moduleLabels[m]; ok {
		return label
	}
	return strconv.Itoa(int(m))
}

func (m Module) String() string { return strconv.Itoa(int(m)) }

// UnmarshalJSON accepts both 2 and "2"; older documents stored the module as a string.
func (m *Module) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		return m.parse(s)
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("%w: module must be a number", ErrInvalidBook)
	}
	*m = Module(n)
	return nil
}

func (m *Module) parse(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		*m = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("%w: module %q is not a number", ErrInvalidBook, s)
	}
	*m = Module(n)
	return nil
}

// Status is true while the copy is on the shelf and false while it is lent.
type Status bool

const (
	Available Status = true
	Lent      Status = false
)

func (s Status) String() string {
	if s {
		return "available"
	}
	return "lent"
}

// ParseStatus maps both representations seen in stored documents,
// booleans and the "available"/"lent" strings, onto Status.
func ParseStatus(v string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "available", "true":
		return Available, nil
	case "lent", "false":
		return Lent, nil
	}
	return Available, fmt.Errorf("%w: unknown status %q", ErrInvalidBook, v)
}

func (s *Status) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		parsed, err := ParseStatus(v)
		if err != nil {
			return err
		}
		*s = parsed
		return nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err != nil {
		return fmt.Errorf("%w: status must be a boolean", ErrInvalidBook)
	}
	*s = Status(b)
	return nil
}

// Book is one physical copy in the inventory.
type Book struct {
	ID           string    `json:"_id" bson:"_id" db:"id"`
	Module       Module    `json:"module" bson:"module" db:"module"`
	Band         Band      `json:"band" bson:"band" db:"band"`
	Barcode      string    `json:"barcode" bson:"barcode" db:"barcode"`
	LessonNumber int       `json:"lessonNumber,omitempty" bson:"lessonNumber,omitempty" db:"lesson_number"`
	CopyNumber   int       `json:"copyNumber" bson:"copyNumber" db:"copy_number"`
	Status       Status    `json:"status" bson:"status" db:"status"`
	StudentName  string    `json:"studentName,omitempty" bson:"studentName,omitempty" db:"student_name"`
	CoverImage   string    `json:"coverImage" bson:"coverImage" db:"cover_image"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" bson:"updatedAt" db:"updated_at"`
}

// UnmarshalJSON defaults Status to Available when the field is absent.
func (b *Book) UnmarshalJSON(data []byte) error {
	type plain Book
	decoded := plain{Status: Available}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*b = Book(decoded)
	return nil
}

// Validate checks the fields a new book cannot be stored without.
func (b Book) Validate() error {
	var missing []string
	if b.Module == 0 {
		missing = append(missing, "module")
	}
	if b.Band == "" {
		missing = append(missing, "band")
	}
	if b.Barcode == "" {
		missing = append(missing, "barcode")
	}
	if b.CopyNumber == 0 {
		missing = append(missing, "copyNumber")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s required", ErrInvalidBook, strings.Join(missing, ", "))
	}
	return nil
}

// Normalize enforces the record invariants: no student on an available
// copy and a cover image on every record.
func (b *Book) Normalize() {
	if b.Status == Available {
		b.StudentName = ""
	}
	if b.CoverImage == "" {
		b.CoverImage = DefaultCoverImage
	}
}

// BookPatch is a partial update. Nil fields are left unchanged; an empty
// StudentName or a zero LessonNumber clears the field.
type BookPatch struct {
	ID           *string
	Module       *Module
	Band         *Band
	Barcode      *string
	LessonNumber *int
	CopyNumber   *int
	Status       *Status
	StudentName  *string
	CoverImage   *string
}

// clearable lists the keys a patch may set to null.
var clearable = map[string]bool{
	"studentName":  true,
	"lessonNumber": true,
	"coverImage":   true,
}

// UnmarshalJSON keeps the difference between an absent key and an explicit
// null, so {"studentName": null} clears the student. Null is rejected for
// every other key.
func (p *BookPatch) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	for key, value := range raw {
		isNull := bytes.Equal(bytes.TrimSpace(value), []byte("null"))
		if isNull && !clearable[key] {
			return fmt.Errorf("%w: field %s cannot be null", ErrInvalidBook, key)
		}
		var err error
		switch key {
		case "_id", "id":
			var id string
			err = json.Unmarshal(value, &id)
			p.ID = &id
		case "module":
			var m Module
			err = json.Unmarshal(value, &m)
			p.Module = &m
		case "band":
			var b Band
			err = json.Unmarshal(value, &b)
			p.Band = &b
		case "barcode":
			var s string
			err = json.Unmarshal(value, &s)
			p.Barcode = &s
		case "lessonNumber":
			var n int
			if !isNull {
				err = json.Unmarshal(value, &n)
			}
			p.LessonNumber = &n
		case "copyNumber":
			var n int
			err = json.Unmarshal(value, &n)
			p.CopyNumber = &n
		case "status":
			var s Status
			err = json.Unmarshal(value, &s)
			p.Status = &s
		case "studentName":
			var s string
			if !isNull {
				err = json.Unmarshal(value, &s)
			}
			p.StudentName = &s
		case "coverImage":
			var s string
			if !isNull {
				err = json.Unmarshal(value, &s)
			}
			p.CoverImage = &s
		}
		if err != nil {
			return fmt.Errorf("%w: field %s: %v", ErrInvalidBook, key, err)
		}
	}
	return nil
}

// MarshalJSON emits only the fields the patch sets.
func (p BookPatch) MarshalJSON() ([]byte, error) {
	out := map[string]interface{}{}
	if p.Module != nil {
		out["module"] = *p.Module
	}
	if p.Band != nil {
		out["band"] = *p.Band
	}
	if p.Barcode != nil {
		out["barcode"] = *p.Barcode
	}
	if p.LessonNumber != nil {
		if *p.LessonNumber == 0 {
			out["lessonNumber"] = nil
		} else {
			out["lessonNumber"] = *p.LessonNumber
		}
	}
	if p.CopyNumber != nil {
		out["copyNumber"] = *p.CopyNumber
	}
	if p.Status != nil {
		out["status"] = *p.Status
	}
	if p.StudentName != nil {
		if *p.StudentName == "" {
			out["studentName"] = nil
		} else {
			out["studentName"] = *p.StudentName
		}
	}
	if p.CoverImage != nil {
		out["coverImage"] = *p.CoverImage
	}
	return json.Marshal(out)
}

func (p BookPatch) Empty() bool {
	return p.Module == nil && p.Band == nil && p.Barcode == nil && p.LessonNumber == nil &&
		p.CopyNumber == nil && p.Status == nil && p.StudentName == nil && p.CoverImage == nil
}

// Apply returns b with the patch applied and the record invariants restored.
func (p BookPatch) Apply(b Book) Book {
	if p.Module != nil {
		b.Module = *p.Module
	}
	if p.Band != nil {
		b.Band = *p.Band
	}
	if p.Barcode != nil {
		b.Barcode = *p.Barcode
	}
	if p.LessonNumber != nil {
		b.LessonNumber = *p.LessonNumber
	}
	if p.CopyNumber != nil {
		b.CopyNumber = *p.CopyNumber
	}
	if p.Status != nil {
		b.Status = *p.Status
	}
	if p.StudentName != nil {
		b.StudentName = *p.StudentName
	}
	if p.CoverImage != nil {
		b.CoverImage = *p.CoverImage
	}
	b.Normalize()
	return b
}
