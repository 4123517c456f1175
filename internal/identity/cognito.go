package identity

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"go.uber.org/zap"
)

// ErrChallengeRequired is returned when the provider answers an
// authentication with a challenge instead of tokens.
var ErrChallengeRequired = errors.New("authentication challenge required")

// ErrUnsupported is returned by providers that cannot check passwords.
var ErrUnsupported = errors.New("operation not supported by identity provider")

// CognitoAPI is the subset of *cognitoidentityprovider.Client the adapter uses.
type CognitoAPI interface {
	AdminCreateUser(ctx context.Context, params *cognitoidentityprovider.AdminCreateUserInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.AdminCreateUserOutput, error)
	AdminInitiateAuth(ctx context.Context, params *cognitoidentityprovider.AdminInitiateAuthInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.AdminInitiateAuthOutput, error)
	AdminSetUserPassword(ctx context.Context, params *cognitoidentityprovider.AdminSetUserPasswordInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.AdminSetUserPasswordOutput, error)
	AdminGetUser(ctx context.Context, params *cognitoidentityprovider.AdminGetUserInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.AdminGetUserOutput, error)
	AdminUpdateUserAttributes(ctx context.Context, params *cognitoidentityprovider.AdminUpdateUserAttributesInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.AdminUpdateUserAttributesOutput, error)
	AdminDeleteUser(ctx context.Context, params *cognitoidentityprovider.AdminDeleteUserInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.AdminDeleteUserOutput, error)
}

var _ CognitoAPI = (*cognitoidentityprovider.Client)(nil)

// CognitoConfig identifies the user pool and app client.
type CognitoConfig struct {
	UserPoolID   string
	ClientID     string
	ClientSecret string
}

// Cognito is a Provider backed by an AWS Cognito user pool. Provider errors
// are returned as they come.
type Cognito struct {
	client CognitoAPI
	cfg    CognitoConfig
	logger *zap.Logger
}

var _ Provider = (*Cognito)(nil)

// NewCognito creates a Cognito adapter.
func NewCognito(client CognitoAPI, cfg CognitoConfig, logger *zap.Logger) *Cognito {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cognito{client: client, cfg: cfg, logger: logger.Named("cognito")}
}

func (c *Cognito) CreateUser(ctx context.Context, email, temporaryPassword string, attributes map[string]string) error {
	_, err := c.client.AdminCreateUser(ctx, &cognitoidentityprovider.AdminCreateUserInput{
		UserPoolId:        aws.String(c.cfg.UserPoolID),
		Username:          aws.String(email),
		TemporaryPassword: aws.String(temporaryPassword),
		UserAttributes:    toAttributeTypes(attributes),
		MessageAction:     types.MessageActionTypeSuppress,
	})
	if err != nil {
		c.logger.Warn("AdminCreateUser failed", zap.String("email", email), zap.Error(err))
	}
	return err
}

func (c *Cognito) Authenticate(ctx context.Context, email, password string) (*AuthResult, error) {
	params := map[string]string{
		"USERNAME": email,
		"PASSWORD": password,
	}
	if c.cfg.ClientSecret != "" {
		params["SECRET_HASH"] = SecretHash(email, c.cfg.ClientID, c.cfg.ClientSecret)
	}

	out, err := c.client.AdminInitiateAuth(ctx, &cognitoidentityprovider.AdminInitiateAuthInput{
		AuthFlow:       types.AuthFlowTypeAdminNoSrpAuth,
		UserPoolId:     aws.String(c.cfg.UserPoolID),
		ClientId:       aws.String(c.cfg.ClientID),
		AuthParameters: params,
	})
	if err != nil {
		return nil, err
	}
	if out.AuthenticationResult == nil {
		c.logger.Info("Authentication answered with a challenge",
			zap.String("email", email),
			zap.String("challenge", string(out.ChallengeName)))
		return nil, ErrChallengeRequired
	}

	res := out.AuthenticationResult
	return &AuthResult{
		AccessToken:  aws.ToString(res.AccessToken),
		IDToken:      aws.ToString(res.IdToken),
		RefreshToken: aws.ToString(res.RefreshToken),
		ExpiresIn:    res.ExpiresIn,
	}, nil
}

func (c *Cognito) SetPassword(ctx context.Context, email, password string, permanent bool) error {
	_, err := c.client.AdminSetUserPassword(ctx, &cognitoidentityprovider.AdminSetUserPasswordInput{
		UserPoolId: aws.String(c.cfg.UserPoolID),
		Username:   aws.String(email),
		Password:   aws.String(password),
		Permanent:  permanent,
	})
	return err
}

func (c *Cognito) GetUser(ctx context.Context, email string) (*Attributes, error) {
	out, err := c.client.AdminGetUser(ctx, &cognitoidentityprovider.AdminGetUserInput{
		UserPoolId: aws.String(c.cfg.UserPoolID),
		Username:   aws.String(email),
	})
	if err != nil {
		return nil, err
	}
	attrs := ExtractAttributes(out.UserAttributes)
	return &attrs, nil
}

func (c *Cognito) UpdateAttributes(ctx context.Context, email string, attributes map[string]string) error {
	_, err := c.client.AdminUpdateUserAttributes(ctx, &cognitoidentityprovider.AdminUpdateUserAttributesInput{
		UserPoolId:     aws.String(c.cfg.UserPoolID),
		Username:       aws.String(email),
		UserAttributes: toAttributeTypes(attributes),
	})
	return err
}

func (c *Cognito) DeleteUser(ctx context.Context, email string) error {
	_, err := c.client.AdminDeleteUser(ctx, &cognitoidentityprovider.AdminDeleteUserInput{
		UserPoolId: aws.String(c.cfg.UserPoolID),
		Username:   aws.String(email),
	})
	return err
}

// SecretHash computes the SECRET_HASH parameter required by app clients that
// have a secret: base64(HMAC-SHA256(secret, username + clientID)).
func SecretHash(username, clientID, clientSecret string) string {
	mac := hmac.New(sha256.New, []byte(clientSecret))
	mac.Write([]byte(username + clientID))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// toAttributeTypes renders attributes sorted by name.
func toAttributeTypes(attributes map[string]string) []types.AttributeType {
	names := make([]string, 0, len(attributes))
	for name := range attributes {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]types.AttributeType, 0, len(names))
	for _, name := range names {
		out = append(out, types.AttributeType{Name: aws.String(name), Value: aws.String(attributes[name])})
	}
	return out
}
