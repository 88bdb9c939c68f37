package types

import (
	"encoding/json"
	"fmt"
)

// Wire messages mirror the server's externally tagged JSON enums:
//
//	{"RegisterTeam":{"name":"t"}}
//	{"RegisterTeamResult":{"Ok":{"expected_players":3,"registration_token":"..."}}}
//	{"SubscribePlayerResult":"Ok"}
//	{"RadarView":"ieysGjGO8papd/a"}
//	{"Hint":{"Secret":42}}            {"Hint":"SOSHelper"}
//	{"Action":{"MoveTo":"Front"}}     {"Action":{"SolveChallenge":{"answer":"1"}}}
//	{"ActionError":"SolveChallengeFirst"}
//	{"Challenge":{"SecretSumModulo":7}} {"Challenge":"SOS"}

type RelativeDirection string

const (
	Front RelativeDirection = "Front"
	Right RelativeDirection = "Right"
	Back  RelativeDirection = "Back"
	Left  RelativeDirection = "Left"
)

type RegistrationError string

const (
	AlreadyRegistered        RegistrationError = "AlreadyRegistered"
	InvalidName              RegistrationError = "InvalidName"
	InvalidRegistrationToken RegistrationError = "InvalidRegistrationToken"
	TooManyPlayers           RegistrationError = "TooManyPlayers"
)

type ActionError string

const (
	CannotPassThroughWall     ActionError = "CannotPassThroughWall"
	CannotPassThroughOpponent ActionError = "CannotPassThroughOpponent"
	NoRunningChallenge        ActionError = "NoRunningChallenge"
	SolveChallengeFirst       ActionError = "SolveChallengeFirst"
	InvalidChallengeSolution  ActionError = "InvalidChallengeSolution"
)

type RegisterTeam struct {
	Name string `json:"name"`
}

type RegisterTeamOk struct {
	ExpectedPlayers   uint8  `json:"expected_players"`
	RegistrationToken string `json:"registration_token"`
}

type RegisterTeamResult struct {
	Ok  *RegisterTeamOk    `json:"Ok,omitempty"`
	Err *RegistrationError `json:"Err,omitempty"`
}

type SubscribePlayer struct {
	Name              string `json:"name"`
	RegistrationToken string `json:"registration_token"`
}

// SubscribePlayerResult is either the unit variant "Ok" or {"Err": reason}.
type SubscribePlayerResult struct {
	Ok  bool
	Err *RegistrationError
}

func (r SubscribePlayerResult) MarshalJSON() ([]byte, error) {
	if r.Err != nil {
		return json.Marshal(struct {
			Err RegistrationError `json:"Err"`
		}{*r.Err})
	}
	return json.Marshal("Ok")
}

func (r *SubscribePlayerResult) UnmarshalJSON(data []byte) error {
	if name, ok := unitVariant(data); ok {
		if name != "Ok" {
			return fmt.Errorf("unknown SubscribePlayerResult variant %q", name)
		}
		*r = SubscribePlayerResult{Ok: true}
		return nil
	}
	var raw struct {
		Err *RegistrationError `json:"Err"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Err == nil {
		return fmt.Errorf("SubscribePlayerResult: missing variant in %s", data)
	}
	*r = SubscribePlayerResult{Err: raw.Err}
	return nil
}

type RelativeCompass struct {
	Angle float32 `json:"angle"`
}

type GridSize struct {
	Columns uint32 `json:"columns"`
	Rows    uint32 `json:"rows"`
}

type Hint struct {
	RelativeCompass *RelativeCompass `json:"RelativeCompass,omitempty"`
	GridSize        *GridSize        `json:"GridSize,omitempty"`
	Secret          *uint64          `json:"Secret,omitempty"`
	SOSHelper       bool             `json:"-"`
}

type hintFields Hint

func (h Hint) MarshalJSON() ([]byte, error) {
	if h.SOSHelper {
		return json.Marshal("SOSHelper")
	}
	return json.Marshal(hintFields(h))
}

func (h *Hint) UnmarshalJSON(data []byte) error {
	if name, ok := unitVariant(data); ok {
		if name != "SOSHelper" {
			return fmt.Errorf("unknown Hint variant %q", name)
		}
		*h = Hint{SOSHelper: true}
		return nil
	}
	var f hintFields
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*h = Hint(f)
	return nil
}

type SolveChallenge struct {
	Answer string `json:"answer"`
}

type Action struct {
	MoveTo         *RelativeDirection `json:"MoveTo,omitempty"`
	SolveChallenge *SolveChallenge    `json:"SolveChallenge,omitempty"`
}

type Challenge struct {
	SecretSumModulo *uint64 `json:"SecretSumModulo,omitempty"`
	SOS             bool    `json:"-"`
}

type challengeFields Challenge

func (c Challenge) MarshalJSON() ([]byte, error) {
	if c.SOS {
		return json.Marshal("SOS")
	}
	return json.Marshal(challengeFields(c))
}

func (c *Challenge) UnmarshalJSON(data []byte) error {
	if name, ok := unitVariant(data); ok {
		if name != "SOS" {
			return fmt.Errorf("unknown Challenge variant %q", name)
		}
		*c = Challenge{SOS: true}
		return nil
	}
	var f challengeFields
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*c = Challenge(f)
	return nil
}

func (c Challenge) String() string {
	switch {
	case c.SOS:
		return "SOS"
	case c.SecretSumModulo != nil:
		return fmt.Sprintf("SecretSumModulo(%d)", *c.SecretSumModulo)
	default:
		return "Challenge(?)"
	}
}

// Message is the envelope for every frame; exactly one field is set.
type Message struct {
	RegisterTeam          *RegisterTeam          `json:"RegisterTeam,omitempty"`
	RegisterTeamResult    *RegisterTeamResult    `json:"RegisterTeamResult,omitempty"`
	SubscribePlayer       *SubscribePlayer       `json:"SubscribePlayer,omitempty"`
	SubscribePlayerResult *SubscribePlayerResult `json:"SubscribePlayerResult,omitempty"`
	RadarView             *string                `json:"RadarView,omitempty"`
	Hint                  *Hint                  `json:"Hint,omitempty"`
	Action                *Action                `json:"Action,omitempty"`
	ActionError           *ActionError           `json:"ActionError,omitempty"`
	Challenge             *Challenge             `json:"Challenge,omitempty"`
}

// Kind names the variant carried by m, or "" when none is set.
func (m Message) Kind() string {
	switch {
	case m.RegisterTeam != nil:
		return "RegisterTeam"
	case m.RegisterTeamResult != nil:
		return "RegisterTeamResult"
	case m.SubscribePlayer != nil:
		return "SubscribePlayer"
	case m.SubscribePlayerResult != nil:
		return "SubscribePlayerResult"
	case m.RadarView != nil:
		return "RadarView"
	case m.Hint != nil:
		return "Hint"
	case m.Action != nil:
		return "Action"
	case m.ActionError != nil:
		return "ActionError"
	case m.Challenge != nil:
		return "Challenge"
	default:
		return ""
	}
}

func (m Message) String() string {
	b, err := json.Marshal(m)
	if err != nil {
		return fmt.Sprintf("Message(%s)", m.Kind())
	}
	return string(b)
}

func NewRegisterTeam(name string) Message {
	return Message{RegisterTeam: &RegisterTeam{Name: name}}
}

func NewSubscribePlayer(name, token string) Message {
	return Message{SubscribePlayer: &SubscribePlayer{Name: name, RegistrationToken: token}}
}

func NewMoveTo(dir RelativeDirection) Message {
	return Message{Action: &Action{MoveTo: &dir}}
}

func NewSolveChallenge(answer string) Message {
	return Message{Action: &Action{SolveChallenge: &SolveChallenge{Answer: answer}}}
}

func NewRadarView(encoded string) Message {
	return Message{RadarView: &encoded}
}

func NewActionError(e ActionError) Message {
	return Message{ActionError: &e}
}

func NewSecretHint(v uint64) Message {
	return Message{Hint: &Hint{Secret: &v}}
}

func NewSecretSumModulo(m uint64) Message {
	return Message{Challenge: &Challenge{SecretSumModulo: &m}}
}

func unitVariant(data []byte) (string, bool) {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return "", false
	}
	return name, true
}
