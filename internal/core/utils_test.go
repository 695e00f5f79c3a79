package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	assert.Equal(t, "verify_the_number_of_rows", Slugify("Verify the number of rows"))
	assert.Equal(t, "check_if_exists_in_hremployees", Slugify("Check if exists in hr.employees"))
	assert.Equal(t, "max_id", Slugify("  --Max   ID-- "))
	assert.Equal(t, "", Slugify("!!!"))
}
