package paramstore

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/require"
)

type fakeSSM struct {
	out     *ssm.GetParameterOutput
	err     error
	lastIn  *ssm.GetParameterInput
	callCnt int
}

func (f *fakeSSM) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.lastIn = in
	f.callCnt++
	return f.out, f.err
}

func paramOutput(value string) *ssm.GetParameterOutput {
	return &ssm.GetParameterOutput{
		Parameter: &ssmtypes.Parameter{Value: &value},
	}
}

func TestNew_NilAPI(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}

func TestGetParameter_HappyPath(t *testing.T) {
	api := &fakeSSM{out: paramOutput("You are a storefront assistant.")}
	c, err := New(api)
	require.NoError(t, err)

	val, err := c.GetParameter(context.Background(), "/storefront/system_prompt")
	require.NoError(t, err)
	require.Equal(t, "You are a storefront assistant.", val)
	require.Equal(t, "/storefront/system_prompt", *api.lastIn.Name)
	require.True(t, *api.lastIn.WithDecryption)
}

func TestGetParameter_TrimsName(t *testing.T) {
	api := &fakeSSM{out: paramOutput("v")}
	c, err := New(api)
	require.NoError(t, err)

	_, err = c.GetParameter(context.Background(), "  /storefront/system_prompt  ")
	require.NoError(t, err)
	require.Equal(t, "/storefront/system_prompt", *api.lastIn.Name)
}

func TestGetParameter_EmptyName(t *testing.T) {
	c, err := New(&fakeSSM{})
	require.NoError(t, err)

	_, err = c.GetParameter(context.Background(), "   ")
	require.Error(t, err)
	require.Contains(t, err.Error(), "required")
}

func TestGetParameter_APIError(t *testing.T) {
	api := &fakeSSM{err: errors.New("access denied")}
	c, err := New(api)
	require.NoError(t, err)

	_, err = c.GetParameter(context.Background(), "/storefront/system_prompt")
	require.Error(t, err)
	require.Contains(t, err.Error(), "access denied")
}

func TestGetParameter_MissingValue(t *testing.T) {
	api := &fakeSSM{out: &ssm.GetParameterOutput{}}
	c, err := New(api)
	require.NoError(t, err)

	_, err = c.GetParameter(context.Background(), "/storefront/system_prompt")
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing value")
}
