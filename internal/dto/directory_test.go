package dto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/swimcoach/internal/models"
)

func TestParseDescription(t *testing.T) {
	bio := ParseDescription(json.RawMessage(`"Former national team swimmer"`))
	assert.Equal(t, models.DescriptionBio, bio.Kind)
	assert.Equal(t, "Former national team swimmer", bio.Bio)

	structured := ParseDescription(json.RawMessage(`"{\"title\":\"Head coach\",\"certifications\":[\"ASCA\",\" \"]}"`))
	require.Equal(t, models.DescriptionStructured, structured.Kind)
	assert.Equal(t, "Head coach", structured.Profile.Headline)
	assert.Equal(t, []string{"ASCA"}, structured.Profile.Certifications)

	object := ParseDescription(json.RawMessage(`{"headline":"Coach","bio":"Ten years"}`))
	require.Equal(t, models.DescriptionStructured, object.Kind)
	assert.Equal(t, "Ten years", object.Bio)

	assert.Equal(t, models.DescriptionNone, ParseDescription(json.RawMessage(`42`)).Kind)
	assert.Equal(t, models.DescriptionNone, ParseDescription(nil).Kind)
}

func TestParseDescriptionBrokenJSONStaysBio(t *testing.T) {
	d := ParseDescription(json.RawMessage(`"{not json"`))
	assert.Equal(t, models.DescriptionBio, d.Kind)
	assert.Equal(t, "{not json", d.Bio)
}

func TestDecodeInstructorsLocations(t *testing.T) {
	body := `{"instructors":[
		{"instructor_id":"i1","name":"Budi","location":{"lat":-6.2,"lng":106.8}},
		{"id":"i2","full_name":"Sari","lat":"-6.3","lng":"106.7"},
		{"id":"i3","name":"Tono","lat":95,"lng":10},
		{"id":"i4","name":"Rina"}
	]}`
	items, err := DecodeInstructors([]byte(body))
	require.NoError(t, err)
	require.Len(t, items, 4)

	require.NotNil(t, items[0].Location)
	assert.Equal(t, -6.2, items[0].Location.Lat)
	assert.Equal(t, "Sari", items[1].Name)
	require.NotNil(t, items[1].Location)
	assert.Equal(t, 106.7, items[1].Location.Lng)
	assert.Nil(t, items[2].Location, "out of range coordinates are unknown")
	assert.Nil(t, items[3].Location)
}

func TestDecodeCourses(t *testing.T) {
	items, err := DecodeCourses([]byte(`[{"courseId":"c1","name":"Butterfly","instructorId":"i1","price":"250000","maxSessions":12,"location":"-6.2,106.8"}]`))
	require.NoError(t, err)
	require.Len(t, items, 1)
	c := items[0]
	assert.Equal(t, "c1", c.ID)
	assert.Equal(t, "Butterfly", c.Title)
	assert.Equal(t, "i1", c.InstructorID)
	assert.Equal(t, 250000.0, c.Price)
	assert.Equal(t, 12, c.MaxSessions)
	require.NotNil(t, c.Location)
}
