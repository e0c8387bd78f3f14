package deployment

import (
	"context"
	"fmt"
)

// FilesTestSuite returns all file upload and retrieval tests.
func FilesTestSuite() *TestSuite {
	return &TestSuite{
		Name:        "File Operations",
		Description: "Tests for file upload, listing, retrieval and deletion",
		Tests: []TestCase{
			&UploadSingleFileTest{},
			&UploadMultipleFilesTest{},
			&UploadTooManyFilesTest{},
			&ListFilesTest{},
			&GetFileTest{},
			&GetMissingFileTest{},
			&DeleteFilesTest{},
			&DeleteMissingFilesTest{},
		},
	}
}

// UploadSingleFileTest uploads one file and verifies the response shape.
type UploadSingleFileTest struct{}

func (t *UploadSingleFileTest) Name() string        { return "Files_UploadSingle" }
func (t *UploadSingleFileTest) Description() string { return "Upload a single file" }
func (t *UploadSingleFileTest) Tags() []string      { return []string{"files", "upload", "smoke"} }

func (t *UploadSingleFileTest) Run(ctx context.Context, client *Client) error {
	var a Assert

	batch, message, err := client.UploadFiles(ctx, client.MakeTestVideo("single.mp4"))
	if err := a.NoError(err, "Upload should succeed"); err != nil {
		return err
	}
	if err := a.Equal(1, batch.Count, "Count should be 1"); err != nil {
		return err
	}
	if err := a.Len(len(batch.Files), 1, "One file record expected"); err != nil {
		return err
	}
	if err := a.NotEmpty(batch.Files[0].ID, "File should have an ID"); err != nil {
		return err
	}
	if err := a.NotEmpty(batch.Files[0].URL, "File should have a URL"); err != nil {
		return err
	}
	if err := a.Equal("video", batch.Files[0].FileType, "File type should be classified"); err != nil {
		return err
	}
	return a.Equal("Files uploaded successfully", message, "Upload message")
}

// UploadMultipleFilesTest uploads a mixed batch in one request.
type UploadMultipleFilesTest struct{}

func (t *UploadMultipleFilesTest) Name() string        { return "Files_UploadMultiple" }
func (t *UploadMultipleFilesTest) Description() string { return "Upload several files at once" }
func (t *UploadMultipleFilesTest) Tags() []string      { return []string{"files", "upload"} }

func (t *UploadMultipleFilesTest) Run(ctx context.Context, client *Client) error {
	var a Assert

	batch, _, err := client.UploadFiles(ctx,
		client.MakeTestVideo("multi-1.mp4"),
		client.MakeTestVideo("multi-2.mp4"),
		client.MakeTestImage("multi-3.png"),
	)
	if err := a.NoError(err, "Upload should succeed"); err != nil {
		return err
	}
	if err := a.Equal(3, batch.Count, "Count should match input"); err != nil {
		return err
	}

	types := map[string]int{}
	for _, file := range batch.Files {
		types[file.FileType]++
	}
	if err := a.Equal(2, types["video"], "Two videos expected"); err != nil {
		return err
	}
	return a.Equal(1, types["image"], "One image expected")
}

// UploadTooManyFilesTest verifies the upload batch limit.
type UploadTooManyFilesTest struct{}

func (t *UploadTooManyFilesTest) Name() string        { return "Files_UploadTooMany" }
func (t *UploadTooManyFilesTest) Description() string { return "Reject a batch above the upload limit" }
func (t *UploadTooManyFilesTest) Tags() []string      { return []string{"files", "upload", "limits"} }

func (t *UploadTooManyFilesTest) Run(ctx context.Context, client *Client) error {
	var a Assert

	files := make([]TestFile, 0, 6)
	for i := range 6 {
		files = append(files, client.MakeTestVideo(fmt.Sprintf("over-limit-%d.mp4", i)))
	}

	_, _, err := client.UploadFiles(ctx, files...)
	return a.ErrorContains(err, "maximum of 5 files", "Oversized batch should be rejected")
}

// ListFilesTest verifies file listing with pagination metadata.
type ListFilesTest struct{}

func (t *ListFilesTest) Name() string        { return "Files_List" }
func (t *ListFilesTest) Description() string { return "List stored files with pagination" }
func (t *ListFilesTest) Tags() []string      { return []string{"files", "list", "smoke"} }

func (t *ListFilesTest) Run(ctx context.Context, client *Client) error {
	var a Assert

	_, _, err := client.UploadFiles(ctx, client.MakeTestVideo("listed.mp4"))
	if err := a.NoError(err, "Seed upload should succeed"); err != nil {
		return err
	}

	files, meta, err := client.ListFiles(ctx, 1, 10)
	if err := a.NoError(err, "List should succeed"); err != nil {
		return err
	}
	if err := a.NotNil(meta, "List should include pagination metadata"); err != nil {
		return err
	}
	if err := a.MinLen(len(files), 1, "List should contain at least the seeded file"); err != nil {
		return err
	}
	return a.GreaterOrEqual(int(meta.Total), len(files), "Total should cover the page")
}

// GetFileTest retrieves a freshly uploaded file by ID.
type GetFileTest struct{}

func (t *GetFileTest) Name() string        { return "Files_Get" }
func (t *GetFileTest) Description() string { return "Retrieve one file by ID" }
func (t *GetFileTest) Tags() []string      { return []string{"files", "get"} }

func (t *GetFileTest) Run(ctx context.Context, client *Client) error {
	var a Assert

	batch, _, err := client.UploadFiles(ctx, client.MakeTestVideo("fetched.mp4"))
	if err := a.NoError(err, "Seed upload should succeed"); err != nil {
		return err
	}

	file, err := client.GetFile(ctx, batch.Files[0].ID)
	if err := a.NoError(err, "Get should succeed"); err != nil {
		return err
	}
	if err := a.Equal(batch.Files[0].ID, file.ID, "IDs should match"); err != nil {
		return err
	}
	return a.Contains(file.OriginalFilename, "fetched.mp4", "Original filename should survive")
}

// GetMissingFileTest verifies the not-found response.
type GetMissingFileTest struct{}

func (t *GetMissingFileTest) Name() string        { return "Files_GetMissing" }
func (t *GetMissingFileTest) Description() string { return "Fetch a file that does not exist" }
func (t *GetMissingFileTest) Tags() []string      { return []string{"files", "get"} }

func (t *GetMissingFileTest) Run(ctx context.Context, client *Client) error {
	var a Assert

	_, err := client.GetFile(ctx, "no-such-file-id")
	return a.ErrorContains(err, "File not found", "Missing file should 404")
}

// DeleteFilesTest removes uploaded files and verifies they are gone.
type DeleteFilesTest struct{}

func (t *DeleteFilesTest) Name() string        { return "Files_Delete" }
func (t *DeleteFilesTest) Description() string { return "Delete uploaded files" }
func (t *DeleteFilesTest) Tags() []string      { return []string{"files", "delete", "smoke"} }

func (t *DeleteFilesTest) Run(ctx context.Context, client *Client) error {
	var a Assert

	batch, _, err := client.UploadFiles(ctx,
		client.MakeTestVideo("doomed-1.mp4"),
		client.MakeTestVideo("doomed-2.mp4"),
	)
	if err := a.NoError(err, "Seed upload should succeed"); err != nil {
		return err
	}

	ids := []string{batch.Files[0].ID, batch.Files[1].ID}
	deleted, message, err := client.DeleteFiles(ctx, ids)
	if err := a.NoError(err, "Delete should succeed"); err != nil {
		return err
	}
	if err := a.Equal(2, deleted.Count, "Both files should be removed"); err != nil {
		return err
	}
	if err := a.Equal("Files deleted successfully", message, "Delete message"); err != nil {
		return err
	}

	_, err = client.GetFile(ctx, ids[0])
	return a.Error(err, "Deleted file should no longer resolve")
}

// DeleteMissingFilesTest verifies deleting unknown IDs fails cleanly.
type DeleteMissingFilesTest struct{}

func (t *DeleteMissingFilesTest) Name() string        { return "Files_DeleteMissing" }
func (t *DeleteMissingFilesTest) Description() string { return "Delete IDs that do not exist" }
func (t *DeleteMissingFilesTest) Tags() []string      { return []string{"files", "delete"} }

func (t *DeleteMissingFilesTest) Run(ctx context.Context, client *Client) error {
	var a Assert

	_, _, err := client.DeleteFiles(ctx, []string{"ghost-1", "ghost-2"})
	return a.ErrorContains(err, "Files not found", "Unknown IDs should 404")
}
