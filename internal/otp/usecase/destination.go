package usecase

import (
	"strings"

	"github.com/shandysiswandi/otpgate/internal/otp/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
)

type destinationInput struct {
	Identifier string `validate:"required,max=254"`
	Channel    string `validate:"required,oneof=phone email"`
}

type emailIdentifier struct {
	Identifier string `validate:"email"`
}

type phoneIdentifier struct {
	Identifier string `validate:"phone"`
}

// destination validates and normalizes a raw identifier and channel pair.
// Emails are compared case-insensitively, so they are lower-cased here.
func (s *Usecase) destination(identifier, channel string) (entity.Destination, error) {
	in := destinationInput{
		Identifier: strings.TrimSpace(identifier),
		Channel:    strings.ToLower(strings.TrimSpace(channel)),
	}
	if err := s.validator.Validate(in); err != nil {
		return entity.Destination{}, goerror.NewInvalidInput(err)
	}

	switch entity.ChannelFromString(in.Channel) {
	case entity.ChannelEmail:
		email := strings.ToLower(in.Identifier)
		if err := s.validator.Validate(emailIdentifier{Identifier: email}); err != nil {
			return entity.Destination{}, goerror.NewInvalidInput(err)
		}
		return entity.Email(email), nil

	case entity.ChannelPhone:
		if err := s.validator.Validate(phoneIdentifier{Identifier: in.Identifier}); err != nil {
			return entity.Destination{}, goerror.NewInvalidInput(err)
		}
		return entity.Phone(in.Identifier), nil

	default:
		return entity.Destination{}, goerror.NewInvalidInput(nil, "channel", "channel is not supported")
	}
}
