package buyers

import (
	"encoding/json"
	"strings"
	"time"
)

// City is the buyer's target city.
type City string

const (
	CityChandigarh City = "Chandigarh"
	CityMohali     City = "Mohali"
	CityZirakpur   City = "Zirakpur"
	CityPanchkula  City = "Panchkula"
	CityOther      City = "Other"
)

// Cities lists every accepted city value.
var Cities = []City{CityChandigarh, CityMohali, CityZirakpur, CityPanchkula, CityOther}

// PropertyType is the kind of property the buyer is looking for.
type PropertyType string

const (
	PropertyApartment PropertyType = "Apartment"
	PropertyVilla     PropertyType = "Villa"
	PropertyPlot      PropertyType = "Plot"
	PropertyOffice    PropertyType = "Office"
	PropertyRetail    PropertyType = "Retail"
)

// PropertyTypes lists every accepted property type value.
var PropertyTypes = []PropertyType{PropertyApartment, PropertyVilla, PropertyPlot, PropertyOffice, PropertyRetail}

// RequiresBHK reports whether leads of this property type must carry a BHK.
func (p PropertyType) RequiresBHK() bool {
	switch p {
	case PropertyApartment, PropertyVilla:
		return true
	case PropertyPlot, PropertyOffice, PropertyRetail:
		return false
	}
	return false
}

// BHK is the bedroom configuration, required for Apartment and Villa leads.
type BHK string

const (
	BHK1      BHK = "1"
	BHK2      BHK = "2"
	BHK3      BHK = "3"
	BHK4      BHK = "4"
	BHKStudio BHK = "Studio"
)

// Purpose distinguishes buy from rent leads.
type Purpose string

const (
	PurposeBuy  Purpose = "Buy"
	PurposeRent Purpose = "Rent"
)

// Timeline is the buyer's purchase horizon.
type Timeline string

const (
	TimelineImmediate Timeline = "0-3m"
	TimelineSoon      Timeline = "3-6m"
	TimelineLater     Timeline = ">6m"
	TimelineExploring Timeline = "Exploring"
)

// Source records where the lead came from.
type Source string

const (
	SourceWebsite  Source = "Website"
	SourceReferral Source = "Referral"
	SourceWalkIn   Source = "Walk-in"
	SourceCall     Source = "Call"
	SourceOther    Source = "Other"
)

// Status is the lead's pipeline stage.
type Status string

const (
	StatusNew         Status = "New"
	StatusQualified   Status = "Qualified"
	StatusContacted   Status = "Contacted"
	StatusVisited     Status = "Visited"
	StatusNegotiation Status = "Negotiation"
	StatusConverted   Status = "Converted"
	StatusDropped     Status = "Dropped"
)

// Statuses lists every accepted status value.
var Statuses = []Status{StatusNew, StatusQualified, StatusContacted, StatusVisited, StatusNegotiation, StatusConverted, StatusDropped}

// Lead is one buyer record as stored.
type Lead struct {
	ID           string       `json:"id"`
	OwnerID      string       `json:"ownerId"`
	FullName     string       `json:"fullName"`
	Email        string       `json:"email,omitempty"`
	Phone        string       `json:"phone"`
	City         City         `json:"city"`
	PropertyType PropertyType `json:"propertyType"`
	BHK          BHK          `json:"bhk,omitempty"`
	Purpose      Purpose      `json:"purpose"`
	BudgetMin    *int         `json:"budgetMin,omitempty"`
	BudgetMax    *int         `json:"budgetMax,omitempty"`
	Timeline     Timeline     `json:"timeline"`
	Source       Source       `json:"source"`
	Status       Status       `json:"status"`
	Notes        string       `json:"notes,omitempty"`
	Tags         []string     `json:"tags"`
	Revision     int64        `json:"revision"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// TagList accepts tags either as a JSON array or as a single comma-separated
// string, the shape CSV imports produce.
type TagList []string

func (t *TagList) UnmarshalJSON(data []byte) error {
	var asList []string
	if err := json.Unmarshal(data, &asList); err == nil {
		*t = asList
		return nil
	}
	var asString string
	if err := json.Unmarshal(data, &asString); err != nil {
		return err
	}
	*t = splitTags(asString)
	return nil
}

// LeadInput is the user-supplied shape for create, update, and import. Owner,
// id, revision, and timestamps are never taken from it.
type LeadInput struct {
	FullName     string  `json:"fullName" validate:"required,min=2"`
	Email        string  `json:"email" validate:"omitempty,email"`
	Phone        string  `json:"phone" validate:"required,numeric,min=10,max=15"`
	City         string  `json:"city" validate:"required,oneof=Chandigarh Mohali Zirakpur Panchkula Other"`
	PropertyType string  `json:"propertyType" validate:"required,oneof=Apartment Villa Plot Office Retail"`
	BHK          string  `json:"bhk" validate:"omitempty,oneof=1 2 3 4 Studio"`
	Purpose      string  `json:"purpose" validate:"required,oneof=Buy Rent"`
	BudgetMin    *int    `json:"budgetMin" validate:"omitempty,gt=0"`
	BudgetMax    *int    `json:"budgetMax" validate:"omitempty,gt=0"`
	Timeline     string  `json:"timeline" validate:"required,oneof=0-3m 3-6m >6m Exploring"`
	Source       string  `json:"source" validate:"required,oneof=Website Referral Walk-in Call Other"`
	Status       string  `json:"status" validate:"omitempty,oneof=New Qualified Contacted Visited Negotiation Converted Dropped"`
	Notes        string  `json:"notes" validate:"omitempty,max=1000"`
	Tags         TagList `json:"tags"`
}

// Normalize trims string fields, strips non-digits from the phone, cleans the
// tag list, and defaults the status. It must run before Validate.
func (in *LeadInput) Normalize() {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = stripNonDigits(strings.TrimSpace(in.Phone))
	in.City = strings.TrimSpace(in.City)
	in.PropertyType = strings.TrimSpace(in.PropertyType)
	in.BHK = strings.TrimSpace(in.BHK)
	in.Purpose = strings.TrimSpace(in.Purpose)
	in.Timeline = strings.TrimSpace(in.Timeline)
	in.Source = strings.TrimSpace(in.Source)
	in.Status = strings.TrimSpace(in.Status)
	in.Notes = strings.TrimSpace(in.Notes)

	tags := make([]string, 0, len(in.Tags))
	for _, tag := range in.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	in.Tags = tags

	// BHK only applies to Apartment and Villa; drop it for the rest so a
	// stray value never reaches the store.
	if !PropertyType(in.PropertyType).RequiresBHK() {
		in.BHK = ""
	}
	if in.Status == "" {
		in.Status = string(StatusNew)
	}
}

// toLead maps validated input onto a stored Lead. Identity, owner, revision,
// and timestamps are filled by the repository.
func (in *LeadInput) toLead() *Lead {
	return &Lead{
		FullName:     in.FullName,
		Email:        in.Email,
		Phone:        in.Phone,
		City:         City(in.City),
		PropertyType: PropertyType(in.PropertyType),
		BHK:          BHK(in.BHK),
		Purpose:      Purpose(in.Purpose),
		BudgetMin:    in.BudgetMin,
		BudgetMax:    in.BudgetMax,
		Timeline:     Timeline(in.Timeline),
		Source:       Source(in.Source),
		Status:       Status(in.Status),
		Notes:        in.Notes,
		Tags:         append([]string{}, in.Tags...),
	}
}

func stripNonDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func splitTags(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
