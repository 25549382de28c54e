package service

import (
	"testing"

	"leadflow_backend/platform/validator"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeActionVariants(t *testing.T) {
	val := validator.New()
	user := uuid.New()

	action, err := DecodeAction("CreateFollowUp", `{"daysAfter": 5, "subject": "Call back"}`, val)
	require.NoError(t, err)
	assert.Equal(t, CreateFollowUp{Subject: "Call back", DaysAfter: 5}, action)

	action, err = DecodeAction("CreateFollowUp", `{"daysAfter": "soon"}`, val)
	require.NoError(t, err)
	assert.Equal(t, 1, action.(CreateFollowUp).DaysAfter)

	action, err = DecodeAction("AssignActivity", `{"assignToUserId": "`+user.String()+`"}`, val)
	require.NoError(t, err)
	assert.Equal(t, AssignActivity{AssignToUserID: user}, action)

	action, err = DecodeAction("SendNotification", `{"emailTo": "a@example.com; b@example.com"}`, val)
	require.NoError(t, err)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, action.(SendNotification).EmailTo)

	action, err = DecodeAction("Archive", "", val)
	require.NoError(t, err)
	assert.Equal(t, ActionArchive, action.Type())
}

func TestDecodeActionRejectsBadConfig(t *testing.T) {
	val := validator.New()

	_, err := DecodeAction("AssignActivity", `{"assignToUserId": "nobody"}`, val)
	assert.Error(t, err)

	_, err = DecodeAction("SendNotification", `{"emailTo": ["not-an-address"]}`, val)
	assert.Error(t, err)

	_, err = DecodeAction("ChangeStatus", `{"status": {"nested": true}}`, val)
	assert.Error(t, err)

	_, err = DecodeAction("CreateTask", `{broken`, val)
	assert.Error(t, err)

	_, err = DecodeAction("Teleport", "", val)
	var unknown *UnknownActionError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "Unknown action type: Teleport", err.Error())
}
