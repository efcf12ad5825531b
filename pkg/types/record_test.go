package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordIdentifier(t *testing.T) {
	testCases := []struct {
		name     string
		record   Record
		expected string
	}{
		{
			name:     "physical id wins",
			record:   Record{LogicalResourceID: "Vpc1", PhysicalResourceID: "vpc-123"},
			expected: "vpc-123",
		},
		{
			name:     "falls back to logical id",
			record:   Record{LogicalResourceID: "Vpc1"},
			expected: "Vpc1",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.record.Identifier())
		})
	}
}

func TestRecordTags(t *testing.T) {
	var r Record
	require.NoError(t, json.Unmarshal([]byte(`{
		"logicalResourceId": "Subnet1",
		"resourceType": "AWS::EC2::Subnet",
		"resourceMetadata": {
			"Type": "AWS::EC2::Subnet",
			"Properties": {
				"Tags": [
					{"Key": "Name", "Value": "Web_Shared_aza_net"},
					{"Key": "Computed", "Value": {"Ref": "AWS::Region"}}
				]
			}
		}
	}`), &r))

	assert.Equal(t, "Web_Shared_aza_net", r.Name())
	_, ok := r.Tag("Computed")
	assert.False(t, ok, "intrinsic tag values are not literal")
}

func TestRecordWithoutMetadata(t *testing.T) {
	var r Record
	require.NoError(t, json.Unmarshal([]byte(`{"logicalResourceId": "X", "resourceType": "AWS::SSM::Parameter"}`), &r))

	_, ok := r.Property("Name")
	assert.False(t, ok)
	assert.Empty(t, r.Tags())
	assert.NotNil(t, r.Properties())
}

func TestPhaseUnmarshal(t *testing.T) {
	testCases := []struct {
		input    string
		expected Phase
		wantErr  bool
	}{
		{input: `1`, expected: 1},
		{input: `"2"`, expected: 2},
		{input: `"phase3"`, expected: 3},
		{input: `"Phase-0"`, expected: 0},
		{input: `null`, expected: UnknownPhase},
		{input: `"abc"`, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			var p Phase
			err := json.Unmarshal([]byte(tc.input), &p)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, p)
		})
	}
}

func TestMappingsUnmarshal(t *testing.T) {
	keyed := `{
		"111111111111|ca-central-1|PBMMAccel-Phase1": {
			"phase": "1",
			"resourcePath": "resources/phase1.json",
			"nestedStacks": {
				"VpcStackA": {"resourcePath": "resources/vpc-a.json"}
			}
		}
	}`
	list := `[
		{"accountId": "111111111111", "region": "ca-central-1", "stackName": "PBMMAccel-Phase1", "phase": 1,
		 "resourcePath": "resources/phase1.json",
		 "nestedStacks": {"VpcStackA": {"resourcePath": "resources/vpc-a.json"}}}
	]`

	for name, input := range map[string]string{"keyed": keyed, "list": list} {
		t.Run(name, func(t *testing.T) {
			var m Mappings
			require.NoError(t, json.Unmarshal([]byte(input), &m))
			require.Equal(t, 1, m.Len())

			stack, ok := m.Get("111111111111", "ca-central-1", "PBMMAccel-Phase1")
			require.True(t, ok)
			assert.Equal(t, Phase(1), stack.Phase)

			nested := stack.NestedStacks["VpcStackA"]
			require.NotNil(t, nested)
			assert.Equal(t, "VpcStackA", nested.LogicalResourceID)
			assert.Equal(t, Phase(1), nested.Phase)
			assert.Equal(t, "ca-central-1", nested.Region)
			assert.Equal(t, "111111111111|ca-central-1|PBMMAccel-Phase1/VpcStackA", nested.Key())
			assert.Same(t, stack, nested.Parent())

			assert.Len(t, m.ByPhase("111111111111", "ca-central-1", 1), 1)
			assert.Empty(t, m.ByPhase("111111111111", "ca-central-1", 2))
		})
	}
}

func TestMappingsSorted(t *testing.T) {
	m := NewMappings(
		&StackMapping{AccountID: "2", Region: "r", StackName: "b", Phase: 1},
		&StackMapping{AccountID: "1", Region: "r", StackName: "a", Phase: 2},
		&StackMapping{AccountID: "1", Region: "r", StackName: "c", Phase: 0},
	)

	var names []string
	for _, s := range m.Sorted() {
		names = append(names, s.StackName)
	}
	assert.Equal(t, []string{"c", "b", "a"}, names)
}

func TestRender(t *testing.T) {
	pseudo := NewPseudo("111111111111", "ca-central-1", "aws")

	testCases := []struct {
		name     string
		value    any
		expected string
		ok       bool
	}{
		{name: "literal", value: "com.amazonaws.ca-central-1.ec2", expected: "com.amazonaws.ca-central-1.ec2", ok: true},
		{name: "pseudo ref", value: map[string]any{"Ref": "AWS::Region"}, expected: "ca-central-1", ok: true},
		{name: "resource ref", value: map[string]any{"Ref": "Vpc1"}, ok: false},
		{
			name: "join",
			value: map[string]any{"Fn::Join": []any{"", []any{
				"com.amazonaws.", map[string]any{"Ref": "AWS::Region"}, ".ssm",
			}}},
			expected: "com.amazonaws.ca-central-1.ssm",
			ok:       true,
		},
		{name: "sub", value: map[string]any{"Fn::Sub": "com.amazonaws.${AWS::Region}.kms"}, expected: "com.amazonaws.ca-central-1.kms", ok: true},
		{name: "sub with resource", value: map[string]any{"Fn::Sub": "${Vpc1}"}, ok: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Render(tc.value, pseudo)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.expected, got)
			}
		})
	}
}

func TestIntrinsics(t *testing.T) {
	id, ok := Ref(NewRef("Role1"))
	assert.True(t, ok)
	assert.Equal(t, "Role1", id)

	id, attr, ok := GetAtt(NewGetAtt("Role1", "Arn"))
	assert.True(t, ok)
	assert.Equal(t, "Role1", id)
	assert.Equal(t, "Arn", attr)

	id, attr, ok = GetAtt(map[string]any{"Fn::GetAtt": "Sg1.GroupId"})
	assert.True(t, ok)
	assert.Equal(t, "Sg1", id)
	assert.Equal(t, "GroupId", attr)

	assert.True(t, RefersTo(NewGetAtt("Sg1", "GroupId"), "Sg1"))
	assert.False(t, RefersTo("sg-123", "Sg1"))
}

func TestDecodeProperties(t *testing.T) {
	r := &Record{
		LogicalResourceID: "Role1",
		ResourceType:      CfnIamRole,
		ResourceMetadata: ResourceMetadata{Properties: map[string]any{
			"RoleName": "Ops-Role",
			"Path":     map[string]any{"Fn::Sub": "/${AWS::Region}/"},
		}},
	}

	props, err := DecodeProperties[RoleProperties](r)
	require.NoError(t, err)
	assert.Equal(t, "Ops-Role", props.RoleName.String())
	assert.True(t, props.RoleName.IsLiteral())
	assert.False(t, props.Path.IsLiteral())
	assert.Equal(t, "", props.Path.String())

	name, ok := props.RoleName.Literal()
	assert.True(t, ok)
	assert.Equal(t, "Ops-Role", name)
	_, ok = props.Path.Literal()
	assert.False(t, ok)
}
