package persistence

import "errors"

var (
	ErrTemplateNotFound     = errors.New("workflow template not found")
	ErrInstanceNotFound     = errors.New("workflow instance not found")
	ErrExecutionNotFound    = errors.New("task execution not found")
	ErrNotificationNotFound = errors.New("hitl notification not found")
	ErrCampaignNotFound     = errors.New("sms campaign not found")
	ErrEnrollmentNotFound   = errors.New("sms enrollment not found")
	ErrRecipientNotFound    = errors.New("recipient not found")
)

func IsTemplateNotFound(err error) bool {
	return errors.Is(err, ErrTemplateNotFound)
}

func IsInstanceNotFound(err error) bool {
	return errors.Is(err, ErrInstanceNotFound)
}

func IsExecutionNotFound(err error) bool {
	return errors.Is(err, ErrExecutionNotFound)
}

func IsNotificationNotFound(err error) bool {
	return errors.Is(err, ErrNotificationNotFound)
}

func IsNotFound(err error) bool {
	return IsTemplateNotFound(err) ||
		IsInstanceNotFound(err) ||
		IsExecutionNotFound(err) ||
		IsNotificationNotFound(err) ||
		errors.Is(err, ErrCampaignNotFound) ||
		errors.Is(err, ErrEnrollmentNotFound) ||
		errors.Is(err, ErrRecipientNotFound)
}
