package teamcowboy

import (
	"encoding/json"
	"fmt"
)

// envelope is the wrapper around every API response.
type envelope struct {
	Success bool            `json:"success"`
	Body    json.RawMessage `json:"body"`
}

// APIError is an error reported inside a response body.
type APIError struct {
	Method       string
	ErrorCode    string `json:"errorCode"`
	HTTPResponse int    `json:"httpResponse"`
	Message      string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("teamcowboy %s: %s (%d): %s", e.Method, e.ErrorCode, e.HTTPResponse, e.Message)
}

// Unauthorized reports whether the error means the credentials or the user
// token were rejected.
func (e *APIError) Unauthorized() bool {
	return e.HTTPResponse == 401 || e.HTTPResponse == 403
}

type userToken struct {
	Token  string `json:"token"`
	UserID int64  `json:"userId"`
}

// Team is an entry of User_GetTeams.
type Team struct {
	TeamID int64  `json:"teamId"`
	Name   string `json:"name"`
}

type ShirtColor struct {
	Title string `json:"title"`
}

// Event is an entry of User_GetTeamEvents.
type Event struct {
	EventID   int64  `json:"eventId"`
	EventType string `json:"eventType"`
	Status    string `json:"status"`
	Title     string `json:"title"`
	HomeAway  string `json:"homeAway"`
	Comments  string `json:"comments"`

	Team struct {
		TeamID int64 `json:"teamId"`
	} `json:"team"`

	Location struct {
		Name    string `json:"name"`
		Address struct {
			DisplayMultiLine string `json:"displayMultiLine"`
		} `json:"address"`
	} `json:"location"`

	ShirtColors struct {
		Team1 *ShirtColor `json:"team1"`
		Team2 *ShirtColor `json:"team2"`
	} `json:"shirtColors"`

	DateTimeInfo struct {
		StartDateLocal        string `json:"startDateLocal"`
		StartDateLocalDisplay string `json:"startDateLocalDisplay"`
		StartTimeLocalDisplay string `json:"startTimeLocalDisplay"`
	} `json:"dateTimeInfo"`

	DateCreatedUTC     string `json:"dateCreatedUtc"`
	DateLastUpdatedUTC string `json:"dateLastUpdatedUtc"`
}

// AttendanceList is the body of Event_GetAttendanceList.
type AttendanceList struct {
	CountsByStatus []struct {
		Status string `json:"status"`
		Counts struct {
			Total    int `json:"total"`
			ByGender struct {
				M     int `json:"m"`
				F     int `json:"f"`
				Other int `json:"other"`
			} `json:"byGender"`
		} `json:"counts"`
	} `json:"countsByStatus"`

	Users []struct {
		User struct {
			UserID int64 `json:"userId"`
		} `json:"user"`
		RSVPInfo struct {
			Status        string `json:"status"`
			StatusDisplay string `json:"statusDisplay"`
		} `json:"rsvpInfo"`
	} `json:"users"`
}

// Member is an entry of Team_GetRoster.
type Member struct {
	UserID        int64  `json:"userId"`
	FullName      string `json:"fullName"`
	Phone1        string `json:"phone1"`
	EmailAddress1 string `json:"emailAddress1"`
	TeamMeta      struct {
		TeamMemberType struct {
			TitleLongSingular string `json:"titleLongSingular"`
		} `json:"teamMemberType"`
	} `json:"teamMeta"`
}
