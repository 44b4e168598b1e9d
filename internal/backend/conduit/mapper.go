package conduit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"phab/internal/service"
)

// searchResponse is the envelope of every *.search Conduit method.
type searchResponse struct {
	Result *struct {
		Data json.RawMessage `json:"data"`
	} `json:"result"`
	ErrorCode *string `json:"error_code"`
	ErrorInfo *string `json:"error_info"`
}

type rawTask struct {
	ID     *uint64 `json:"id"`
	Type   *string `json:"type"`
	PHID   *string `json:"phid"`
	Fields struct {
		Name        *string `json:"name"`
		Description *struct {
			Raw *string `json:"raw"`
		} `json:"description"`
		AuthorPHID *string `json:"authorPHID"`
		OwnerPHID  *string `json:"ownerPHID"`
		Status     *struct {
			Value *string `json:"value"`
		} `json:"status"`
		Priority *struct {
			Name *string `json:"name"`
		} `json:"priority"`
		Points       json.RawMessage `json:"points"`
		DateCreated  *uint64         `json:"dateCreated"`
		DateModified *uint64         `json:"dateModified"`
	} `json:"fields"`
	Attachments struct {
		Columns struct {
			Boards boardMap `json:"boards"`
		} `json:"columns"`
		Projects struct {
			ProjectPHIDs *[]string `json:"projectPHIDs"`
		} `json:"projects"`
	} `json:"attachments"`
}

type rawUser struct {
	ID     *uint64 `json:"id"`
	PHID   *string `json:"phid"`
	Fields struct {
		Username     *string `json:"username"`
		RealName     *string `json:"realName"`
		DateCreated  *uint64 `json:"dateCreated"`
		DateModified *uint64 `json:"dateModified"`
	} `json:"fields"`
}

type rawColumn struct {
	ID   *uint64 `json:"id"`
	PHID *string `json:"phid"`
	Name *string `json:"name"`
}

type rawBoard struct {
	Columns []rawColumn `json:"columns"`
}

// boardMap maps project phids to the columns the task sits in.
// PHP encodes an empty map as [], which decodes to an empty boardMap.
type boardMap map[string]rawBoard

func (b *boardMap) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.HasPrefix(trimmed, []byte("[")) {
		var arr []json.RawMessage
		if err := json.Unmarshal(trimmed, &arr); err != nil {
			return err
		}
		if len(arr) != 0 {
			return fmt.Errorf("boards: expected object, got non-empty array")
		}
		*b = boardMap{}
		return nil
	}
	m := map[string]rawBoard{}
	if err := json.Unmarshal(trimmed, &m); err != nil {
		return err
	}
	*b = m
	return nil
}

// decodeData extracts result.data from a search response as raw items.
func decodeData(body []byte) ([]json.RawMessage, error) {
	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if resp.ErrorCode != nil {
		info := ""
		if resp.ErrorInfo != nil {
			info = *resp.ErrorInfo
		}
		return nil, fmt.Errorf("%w: %s: %s", ErrConduit, *resp.ErrorCode, info)
	}
	if resp.Result == nil || !bytes.HasPrefix(bytes.TrimSpace(resp.Result.Data), []byte("[")) {
		return nil, fmt.Errorf("%w: cannot parse %s", ErrParse, body)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(resp.Result.Data, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return items, nil
}

// TaskFromJSON maps one maniphest.search item to a Task.
func TaskFromJSON(data []byte) (service.Task, error) {
	var raw rawTask
	if err := json.Unmarshal(data, &raw); err != nil {
		return service.Task{}, fmt.Errorf("%w: task: %v", ErrParse, err)
	}

	f := &raw.Fields
	missing := firstMissing(
		field{"id", raw.ID != nil},
		field{"type", raw.Type != nil},
		field{"phid", raw.PHID != nil},
		field{"fields.name", f.Name != nil},
		field{"fields.description.raw", f.Description != nil && f.Description.Raw != nil},
		field{"fields.authorPHID", f.AuthorPHID != nil},
		field{"fields.status.value", f.Status != nil && f.Status.Value != nil},
		field{"fields.priority.name", f.Priority != nil && f.Priority.Name != nil},
		field{"fields.dateCreated", f.DateCreated != nil},
		field{"fields.dateModified", f.DateModified != nil},
		field{"attachments.projects.projectPHIDs", raw.Attachments.Projects.ProjectPHIDs != nil},
	)
	if missing != "" {
		return service.Task{}, fmt.Errorf("%w: task: missing %s in %s", ErrParse, missing, data)
	}

	projectPHIDs := *raw.Attachments.Projects.ProjectPHIDs
	board, err := guessBoardFromProjects(raw.Attachments.Columns.Boards, projectPHIDs)
	if err != nil {
		return service.Task{}, err
	}

	return service.Task{
		ID:           strconv.FormatUint(*raw.ID, 10),
		TaskType:     *raw.Type,
		PHID:         *raw.PHID,
		Name:         *f.Name,
		Description:  *f.Description.Raw,
		AuthorPHID:   *f.AuthorPHID,
		AssignedPHID: f.OwnerPHID,
		Status:       *f.Status.Value,
		Priority:     *f.Priority.Name,
		Point:        parsePoints(f.Points),
		ProjectPHIDs: projectPHIDs,
		Board:        board,
		CreatedAt:    *f.DateCreated,
		UpdatedAt:    *f.DateModified,
	}, nil
}

// UserFromJSON maps one user.search item to a User.
func UserFromJSON(data []byte) (service.User, error) {
	var raw rawUser
	if err := json.Unmarshal(data, &raw); err != nil {
		return service.User{}, fmt.Errorf("%w: user: %v", ErrParse, err)
	}

	f := &raw.Fields
	missing := firstMissing(
		field{"id", raw.ID != nil},
		field{"phid", raw.PHID != nil},
		field{"fields.username", f.Username != nil},
		field{"fields.realName", f.RealName != nil},
		field{"fields.dateCreated", f.DateCreated != nil},
		field{"fields.dateModified", f.DateModified != nil},
	)
	if missing != "" {
		return service.User{}, fmt.Errorf("%w: user: missing %s in %s", ErrParse, missing, data)
	}

	return service.User{
		ID:        strconv.FormatUint(*raw.ID, 10),
		PHID:      *raw.PHID,
		Username:  *f.Username,
		Name:      *f.RealName,
		CreatedAt: *f.DateCreated,
		UpdatedAt: *f.DateModified,
	}, nil
}

// guessBoardFromProjects returns the first column of the first project in
// projectPHIDs that has a board entry. Returns nil if no project matches.
func guessBoardFromProjects(boards boardMap, projectPHIDs []string) (*service.Board, error) {
	for _, phid := range projectPHIDs {
		b, ok := boards[phid]
		if !ok {
			continue
		}
		if len(b.Columns) == 0 {
			return nil, nil
		}
		col := b.Columns[0]
		if col.ID == nil || col.PHID == nil || col.Name == nil {
			return nil, fmt.Errorf("%w: board column of project %s is incomplete", ErrParse, phid)
		}
		return &service.Board{ID: *col.ID, PHID: *col.PHID, Name: *col.Name}, nil
	}
	return nil, nil
}

// parsePoints returns the story points if they are a non-negative integer.
// Phabricator reports null or fractional strings for unestimated tasks.
func parsePoints(raw json.RawMessage) *uint64 {
	if len(raw) == 0 {
		return nil
	}
	n, err := strconv.ParseUint(string(bytes.TrimSpace(raw)), 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

type field struct {
	name    string
	present bool
}

func firstMissing(fields ...field) string {
	for _, f := range fields {
		if !f.present {
			return f.name
		}
	}
	return ""
}
