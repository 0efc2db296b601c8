package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SnapshotKind discriminates the Snapshot union on the wire.
type SnapshotKind string

const (
	SnapshotStatus     SnapshotKind = "status"
	SnapshotRemark     SnapshotKind = "remark"
	SnapshotBio        SnapshotKind = "bio"
	SnapshotClientQA   SnapshotKind = "clientQa"
	SnapshotAssignment SnapshotKind = "assignment"
	SnapshotStage      SnapshotKind = "stage"
	SnapshotPhone      SnapshotKind = "phone"
	SnapshotIntake     SnapshotKind = "intake"
	SnapshotArchive    SnapshotKind = "archive"
)

// Snapshot is the before or after picture attached to a journal entry. Each
// variant carries only the fields its mutation can change.
type Snapshot interface {
	Kind() SnapshotKind
}

type StatusSnapshot struct {
	Status LeadStatus `json:"status"`
}

type RemarkSnapshot struct {
	Remark *string `json:"remark"`
}

type BioSnapshot struct {
	BioText *string `json:"bioText"`
}

type ClientQASnapshot struct {
	ClientQA []QAItem `json:"clientQa"`
}

type AssignmentSnapshot struct {
	AssignedRmID   *uuid.UUID `json:"assignedRmId"`
	AssignedRmName *string    `json:"assignedRM"`
	LeadCode       *string    `json:"leadCode"`
	Status         LeadStatus `json:"status"`
}

type StageSnapshot struct {
	ClientStage *ClientStage `json:"clientStage"`
	ApproachAt  *time.Time   `json:"approachAt"`
	LastSeenAt  *time.Time   `json:"lastSeenAt"`
}

type PhoneSnapshot struct {
	PhoneID    uuid.UUID  `json:"phoneId"`
	Number     string     `json:"number"`
	Label      PhoneLabel `json:"label"`
	IsPrimary  bool       `json:"isPrimary"`
	IsWhatsapp bool       `json:"isWhatsapp"`
}

type IntakeSnapshot struct {
	Status       LeadStatus `json:"status"`
	ReenterCount int        `json:"reenterCount"`
	Archived     bool       `json:"archived"`
	LastSeenAt   *time.Time `json:"lastSeenAt"`
}

type ArchiveSnapshot struct {
	Archived bool `json:"archived"`
}

func (StatusSnapshot) Kind() SnapshotKind     { return SnapshotStatus }
func (RemarkSnapshot) Kind() SnapshotKind     { return SnapshotRemark }
func (BioSnapshot) Kind() SnapshotKind        { return SnapshotBio }
func (ClientQASnapshot) Kind() SnapshotKind   { return SnapshotClientQA }
func (AssignmentSnapshot) Kind() SnapshotKind { return SnapshotAssignment }
func (StageSnapshot) Kind() SnapshotKind      { return SnapshotStage }
func (PhoneSnapshot) Kind() SnapshotKind      { return SnapshotPhone }
func (IntakeSnapshot) Kind() SnapshotKind     { return SnapshotIntake }
func (ArchiveSnapshot) Kind() SnapshotKind    { return SnapshotArchive }

// Snapshot constructors reading the relevant fields off a lead.

func StatusOf(l Lead) StatusSnapshot { return StatusSnapshot{Status: l.Status} }
func RemarkOf(l Lead) RemarkSnapshot { return RemarkSnapshot{Remark: l.Remark} }
func BioOf(l Lead) BioSnapshot       { return BioSnapshot{BioText: l.BioText} }

func ClientQAOf(l Lead) ClientQASnapshot {
	return ClientQASnapshot{ClientQA: l.ClientQA}
}

func AssignmentOf(l Lead) AssignmentSnapshot {
	return AssignmentSnapshot{
		AssignedRmID:   l.AssignedRmID,
		AssignedRmName: l.AssignedRmName,
		LeadCode:       l.LeadCode,
		Status:         l.Status,
	}
}

func StageOf(l Lead) StageSnapshot {
	return StageSnapshot{ClientStage: l.ClientStage, ApproachAt: l.ApproachAt, LastSeenAt: l.LastSeenAt}
}

func IntakeOf(l Lead) IntakeSnapshot {
	return IntakeSnapshot{Status: l.Status, ReenterCount: l.ReenterCount, Archived: l.Archived, LastSeenAt: l.LastSeenAt}
}

func PhoneOf(p LeadPhone) PhoneSnapshot {
	return PhoneSnapshot{PhoneID: p.ID, Number: p.Number, Label: p.Label, IsPrimary: p.IsPrimary, IsWhatsapp: p.IsWhatsapp}
}

type snapshotEnvelope struct {
	Kind SnapshotKind    `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// EncodeSnapshot renders s as {"kind": ..., "data": ...}. A nil snapshot
// encodes to nil so the column stays NULL.
func EncodeSnapshot(s Snapshot) ([]byte, error) {
	if s == nil {
		return nil, nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return json.Marshal(snapshotEnvelope{Kind: s.Kind(), Data: data})
}

var snapshotDecoders = map[SnapshotKind]func(json.RawMessage) (Snapshot, error){
	SnapshotStatus:     decodeAs[StatusSnapshot],
	SnapshotRemark:     decodeAs[RemarkSnapshot],
	SnapshotBio:        decodeAs[BioSnapshot],
	SnapshotClientQA:   decodeAs[ClientQASnapshot],
	SnapshotAssignment: decodeAs[AssignmentSnapshot],
	SnapshotStage:      decodeAs[StageSnapshot],
	SnapshotPhone:      decodeAs[PhoneSnapshot],
	SnapshotIntake:     decodeAs[IntakeSnapshot],
	SnapshotArchive:    decodeAs[ArchiveSnapshot],
}

func decodeAs[T Snapshot](data json.RawMessage) (Snapshot, error) {
	var s T
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return s, nil
}

// DecodeSnapshot is the inverse of EncodeSnapshot.
func DecodeSnapshot(raw []byte) (Snapshot, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var env snapshotEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	decode, ok := snapshotDecoders[env.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown snapshot kind %q", env.Kind)
	}
	return decode(env.Data)
}
