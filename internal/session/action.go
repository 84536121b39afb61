package session

import (
	"errors"
	"fmt"
)

// ActionType names a client transition
type ActionType string

const (
	ActionOpenSlot       ActionType = "open_slot"
	ActionClosePicker    ActionType = "close_picker"
	ActionSearch         ActionType = "search"
	ActionChoose         ActionType = "choose"
	ActionRemove         ActionType = "remove"
	ActionSetFilter      ActionType = "set_filter"
	ActionSetMetric      ActionType = "set_metric"
	ActionSetRegion      ActionType = "set_region"
	ActionSetLanguage    ActionType = "set_language"
	ActionSetTheme       ActionType = "set_theme"
	ActionConfirmRegion  ActionType = "confirm_region"
	ActionOpenQuickView  ActionType = "open_quickview"
	ActionCloseQuickView ActionType = "close_quickview"
	ActionChartClick     ActionType = "chart_click"
	ActionTableSearch    ActionType = "table_search"
)

// Chart names accepted by ActionChartClick
const (
	ChartRanking = "ranking"
	ChartValue   = "value"
)

// Action errors
var (
	ErrUnknownAction     = errors.New("unknown action")
	ErrInvalidAction     = errors.New("invalid action")
	ErrInvalidChartIndex = errors.New("chart index out of range")
)

// Action is one user interaction. Fields are used per Type:
//
//	open_slot, remove           Slot
//	choose                      Slot, ProductID
//	open_quickview              ProductID
//	search, table_search        Value (term)
//	set_filter, set_metric      Value
//	set_region, confirm_region  Value (region code; confirm may leave it empty)
//	set_language                Value
//	set_theme                   Value (mode), ColorHint
//	chart_click                 Chart, Index
type Action struct {
	Type      ActionType `json:"type"`
	Slot      int        `json:"slot,omitempty"`
	ProductID int        `json:"product_id,omitempty"`
	Value     string     `json:"value,omitempty"`
	Chart     string     `json:"chart,omitempty"`
	Index     int        `json:"index,omitempty"`
	ColorHint string     `json:"color_hint,omitempty"`
}

// Validate checks the fields the action type needs
func (a Action) Validate() error {
	switch a.Type {
	case ActionOpenSlot, ActionRemove:
		if a.Slot < 0 {
			return fmt.Errorf("%w: negative slot", ErrInvalidAction)
		}
	case ActionChoose:
		if a.Slot < 0 || a.ProductID == 0 {
			return fmt.Errorf("%w: slot and product_id are required", ErrInvalidAction)
		}
	case ActionOpenQuickView:
		if a.ProductID == 0 {
			return fmt.Errorf("%w: product_id is required", ErrInvalidAction)
		}
	case ActionSetMetric, ActionSetRegion, ActionSetLanguage, ActionSetTheme:
		if a.Value == "" {
			return fmt.Errorf("%w: value is required", ErrInvalidAction)
		}
	case ActionChartClick:
		if a.Chart != ChartRanking && a.Chart != ChartValue {
			return fmt.Errorf("%w: unknown chart %q", ErrInvalidAction, a.Chart)
		}
		if a.Index < 0 {
			return ErrInvalidChartIndex
		}
	case ActionClosePicker, ActionCloseQuickView, ActionSearch, ActionTableSearch,
		ActionSetFilter, ActionConfirmRegion:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, a.Type)
	}
	return nil
}
