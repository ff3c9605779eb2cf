package doctor

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

type Doctor struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	FirstName      string `gorm:"column:first_name;type:varchar(100);not null"`
	LastName       string `gorm:"column:last_name;type:varchar(100);not null"`
	Gender         Gender `gorm:"column:gender;type:varchar(10);not null"`
	Specialization string `gorm:"column:specialization;type:varchar(100);not null;index"`
	Address        string `gorm:"column:address;type:text;not null"`

	IsDeleted bool `gorm:"column:is_deleted;not null;default:false;index"`
}

func (Doctor) TableName() string {
	return "clinical.doctors"
}

func (d *Doctor) FullName() string {
	return strings.TrimSpace(d.FirstName + " " + d.LastName)
}

func (d *Doctor) IsActive() bool {
	return !d.IsDeleted
}

type CreateCommand struct {
	FirstName      string
	LastName       string
	Gender         Gender
	Specialization string
	Address        string
}

type ListQuery struct {
	Specialization string
	Page           int
	PageSize       int
}

type Paged struct {
	Doctors    []*Doctor
	TotalCount int64
	Page       int
	PageSize   int
}
