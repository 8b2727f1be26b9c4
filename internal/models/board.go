package models

import "time"

// BoardGroup groups board members for display, e.g. "Pengurus Inti".
// DisplayOrder values form a dense 1..N sequence across all groups.
type BoardGroup struct {
	ID           int64         `json:"id"`
	Title        string        `json:"title"`
	DisplayOrder int           `json:"display_order"`
	Description  string        `json:"description"`
	Members      []BoardMember `json:"members,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// BoardMember is a directory entry within a board group. MemberOrder values
// form a dense 1..N sequence within the group.
type BoardMember struct {
	ID          int64     `json:"id"`
	GroupID     int64     `json:"group_id"`
	Name        string    `json:"name"`
	Position    string    `json:"position"`
	ImgURL      string    `json:"img_url"`
	Description string    `json:"description"`
	MemberOrder int       `json:"member_order"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
