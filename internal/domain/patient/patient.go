package patient

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
	GenderOther  Gender = "OTHER"
)

func (g Gender) IsValid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

type Patient struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	FirstName string   `gorm:"column:first_name;type:varchar(100);not null"`
	LastName  string   `gorm:"column:last_name;type:varchar(100);not null"`
	Age       int      `gorm:"column:age;not null"`
	Gender    Gender   `gorm:"column:gender;type:varchar(10);not null"`
	Address   string   `gorm:"column:address;type:text;not null"`
	WeightKG  *float64 `gorm:"column:weight_kg"`

	IsDeleted bool `gorm:"column:is_deleted;not null;default:false;index"`
}

func (Patient) TableName() string {
	return "clinical.patients"
}

func (p *Patient) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

func (p *Patient) IsActive() bool {
	return !p.IsDeleted
}

type CreateCommand struct {
	FirstName string
	LastName  string
	Age       int
	Gender    Gender
	Address   string
	WeightKG  *float64
}

type UpdateCommand struct {
	FirstName *string
	LastName  *string
	Age       *int
	Address   *string
	WeightKG  *float64
}

type ListQuery struct {
	Page     int
	PageSize int
}

type Paged struct {
	Patients   []*Patient
	TotalCount int64
	Page       int
	PageSize   int
}
