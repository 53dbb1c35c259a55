package api

type AddURLRequest struct {
	URL string `form:"url" binding:"required,url"`
}

type AddFolderRequest struct {
	Folder string `form:"folder"`
}
