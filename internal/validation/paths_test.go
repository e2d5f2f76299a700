package validation

import "testing"

// TestValidateFilePath tests lenient validation for user-provided CLI paths
func TestValidateFilePath(t *testing.T) {
	testCases := []struct {
		name        string
		path        string
		expectValid bool
		description string
	}{
		// Valid paths - should all be allowed for CLI input
		{
			name:        "simple_relative",
			path:        "file.txt",
			expectValid: true,
			description: "Simple relative file path",
		},
		{
			name:        "relative_with_subdir",
			path:        "subdir/file.txt",
			expectValid: true,
			description: "Relative path with subdirectory",
		},
		{
			name:        "relative_parent",
			path:        "../file.txt",
			expectValid: true,
			description: "Relative path with parent reference (OK for CLI)",
		},
		{
			name:        "multiple_parents",
			path:        "../../file.txt",
			expectValid: true,
			description: "Multiple parent references (OK for CLI)",
		},
		{
			name:        "absolute_unix",
			path:        "/tmp/file.txt",
			expectValid: true,
			description: "Absolute Unix path",
		},
		{
			name:        "absolute_home",
			path:        "/Users/test/file.txt",
			expectValid: true,
			description: "Absolute home directory path",
		},
		{
			name:        "complex_traversal",
			path:        "subdir/../../../etc/passwd",
			expectValid: true,
			description: "Even paths that traverse are OK for CLI (user has full access)",
		},

		// Invalid paths
		{
			name:        "empty",
			path:        "",
			expectValid: false,
			description: "Empty path should be rejected",
		},
		{
			name:        "null_byte",
			path:        "file\x00.txt",
			expectValid: false,
			description: "Path with null byte should be rejected",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateFilePath(tc.path)

			if tc.expectValid {
				if err != nil {
					t.Errorf("Expected path '%s' to be valid, but got error: %v\nDescription: %s",
						tc.path, err, tc.description)
				}
			} else {
				if err == nil {
					t.Errorf("Expected path '%s' to be invalid, but validation passed\nDescription: %s",
						tc.path, tc.description)
				}
			}
		})
	}
}

func TestValidateDirectoryPath(t *testing.T) {
	// ValidateDirectoryPath currently uses same logic as ValidateFilePath
	testCases := []struct {
		name        string
		path        string
		expectValid bool
	}{
		{
			name:        "valid_relative_dir",
			path:        "my_directory",
			expectValid: true,
		},
		{
			name:        "valid_absolute_dir",
			path:        "/tmp/my_directory",
			expectValid: true,
		},
		{
			name:        "valid_with_parent",
			path:        "../my_directory",
			expectValid: true,
		},
		{
			name:        "empty",
			path:        "",
			expectValid: false,
		},
		{
			name:        "null_byte",
			path:        "dir\x00ectory",
			expectValid: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateDirectoryPath(tc.path)

			if tc.expectValid && err != nil {
				t.Errorf("Directory path '%s' should be valid, got error: %v", tc.path, err)
			} else if !tc.expectValid && err == nil {
				t.Errorf("Directory path '%s' should be invalid", tc.path)
			}
		})
	}
}
