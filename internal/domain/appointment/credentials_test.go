package appointment

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pairs34/CerrahPasaRandevu/internal/internaltypes"
)

func TestCredentialsDecodeMixedScalars(t *testing.T) {
	raw := `{"token":"abc","name":"Ali","surname":"Veli","identity_number":12345678901,
		"phone_number":"5551112233","father_name":"Hasan","birth_year":1990,
		"birth_date":"01.01.1990","gender":"E"}`

	var c Credentials
	require.NoError(t, json.Unmarshal([]byte(raw), &c))
	assert.Equal(t, "abc", c.Token)
	assert.Equal(t, "1990", c.BirthYear.String())
	assert.Equal(t, "12345678901", c.IdentityNumber.String())
	assert.Equal(t, "Ali", c.Name.String())
	assert.NoError(t, c.Validate())
}

func TestProfileKeepsStoredJSONTypes(t *testing.T) {
	raw := `{"token":"t","name":"Ali","identity_number":12345678901,"birth_year":1990,"gender":null}`

	var c Credentials
	require.NoError(t, json.Unmarshal([]byte(raw), &c))
	b, err := json.Marshal(c.Profile())
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Ali","identity_number":12345678901,"birth_year":1990,"gender":null}`, string(b))

	b, err = json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(b))
}

func TestCredentialsRejectsNestedField(t *testing.T) {
	var c Credentials
	err := json.Unmarshal([]byte(`{"token":"abc","name":{"first":"Ali"}}`), &c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected scalar")
}

func TestCredentialsValidateRequiresToken(t *testing.T) {
	c := Credentials{Name: Text("Ali")}
	assert.ErrorIs(t, c.Validate(), internaltypes.ErrMalformed)
}

func TestProfileCopiesEveryField(t *testing.T) {
	c := Credentials{
		Token: "t", Name: Text("a"), Surname: Text("b"), IdentityNumber: Text("c"), PhoneNumber: Text("d"),
		FatherName: Text("e"), BirthYear: Text("f"), BirthDate: Text("g"), Gender: Text("h"),
	}
	b, err := json.Marshal(c.Profile())
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"a","surname":"b","identity_number":"c","phone_number":"d",
		"father_name":"e","birth_year":"f","birth_date":"g","gender":"h"}`, string(b))
}

func TestRedacted(t *testing.T) {
	assert.Equal(t, "****wxyz", Credentials{Token: "abcdwxyz"}.Redacted().Token)
	assert.Equal(t, "****", Credentials{Token: "ab"}.Redacted().Token)
	assert.Equal(t, "", Credentials{}.Redacted().Token)
}

func TestTimeSlotKeepsServerValue(t *testing.T) {
	var slots []TimeSlot
	require.NoError(t, json.Unmarshal([]byte(`["2024-05-01T09:30:00", 930]`), &slots))
	require.Len(t, slots, 2)
	assert.Equal(t, Slot("2024-05-01T09:30:00"), slots[0])
	assert.Equal(t, "930", slots[1].String())
	assert.NotEqual(t, Slot("930"), slots[1])

	b, err := json.Marshal(slots)
	require.NoError(t, err)
	assert.JSONEq(t, `["2024-05-01T09:30:00", 930]`, string(b))
}

func TestParseScalar(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"1990", `1990`},
		{"Ali", `"Ali"`},
		{`"1990"`, `"1990"`},
		{"true", `true`},
		{"05551112233", `"05551112233"`},
		{`{"a":1}`, `"{\"a\":1}"`},
	}
	for _, tc := range cases {
		b, err := json.Marshal(ParseScalar(tc.in))
		require.NoError(t, err)
		assert.Equal(t, tc.want, string(b), tc.in)
	}
}

func TestZeroProfileFieldsAreOmitted(t *testing.T) {
	b, err := json.Marshal(Credentials{Token: "t", Surname: Text("Veli")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"token":"t","surname":"Veli"}`, string(b))
}
