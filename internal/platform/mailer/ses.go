// Copyright (c) 2026 Altair. All rights reserved.
// Author: quang.nv.dn@gmail.com

package mailer

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SESSender delivers one-time codes through AWS Simple Email Service.
type SESSender struct {
	client      *ses.Client
	fromAddress string
}

// NewSESSender builds an SES-backed sender using the default AWS credential
// chain for the given region.
func NewSESSender(ctx context.Context, region, fromAddress string) (*SESSender, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("mailer: aws config load failed: %w", err)
	}

	return &SESSender{
		client:      ses.NewFromConfig(awsCfg),
		fromAddress: fromAddress,
	}, nil
}

// SendCode sends the code as a plain-text email.
func (s *SESSender) SendCode(ctx context.Context, email string, code string, kind CodeKind) error {
	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{email},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(subjectFor(kind)),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data:    aws.String(bodyFor(kind, code)),
					Charset: aws.String("UTF-8"),
				},
			},
		},
	}

	if _, err := s.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("mailer: ses_send_failed: %w", err)
	}

	return nil
}
