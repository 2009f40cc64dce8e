package course_test

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/langhour/tracker/core"
	"github.com/langhour/tracker/core/course"
	dummydb "github.com/langhour/tracker/storage/database/dummy"
)

func TestService(t *testing.T) {
	ctx := context.Background()
	validate := validator.New()
	core.InitValidators(validate, core.NewTranslator())
	svc := course.NewService(dummydb.NewCourseRepository(dummydb.Open()))

	tests := []struct {
		name    string
		nc      course.NewCourse
		wantErr bool
	}{
		{name: "valid", nc: course.NewCourse{UserID: "u1", Name: " Arabic Refresher ", Code: "AR-101", Length: 40, StartDate: "01/08/2024", EndDate: "02/02/2024"}},
		{name: "same day", nc: course.NewCourse{UserID: "u1", Name: "Workshop", StartDate: "03/01/2024", EndDate: "03/01/2024"}},
		{name: "end before start", nc: course.NewCourse{UserID: "u1", Name: "Bad", StartDate: "03/02/2024", EndDate: "03/01/2024"}, wantErr: true},
		{name: "malformed date", nc: course.NewCourse{UserID: "u1", Name: "Bad", StartDate: "2024-03-01", EndDate: "03/01/2024"}, wantErr: true},
		{name: "no name", nc: course.NewCourse{UserID: "u1", StartDate: "03/01/2024", EndDate: "03/01/2024"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nc := tt.nc
			err := nc.Validate(validate)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			c, err := svc.Add(ctx, nc)
			require.NoError(t, err)
			assert.NotEmpty(t, c.ID)
			assert.False(t, c.EndDate.Before(c.StartDate))
		})
	}

	courses, err := svc.Query(ctx, course.QueryFilter{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, courses, 2)
	assert.Equal(t, "Workshop", courses[0].Name, "latest start first")
	assert.Equal(t, "Arabic Refresher", courses[1].Name)

	require.NoError(t, svc.Delete(ctx, courses[0].ID))
	assert.True(t, core.IsNotFound(svc.Delete(ctx, courses[0].ID)))
}
