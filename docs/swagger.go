// Package docs Post Grid API
//
// Post Grid serves a blog's posts as a filterable, sortable grid, both as
// server-rendered HTML and as JSON.
//
//	Schemes: http, https
//	BasePath: /
//	Version: 1.0.0
//
//	Produces:
//	- application/json
//
// swagger:meta
package docs

import "github.com/swaggo/swag"

// @title Post Grid API
// @version 1.0
// @description Blog post grid with view and sort modes

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @BasePath /

func init() {
	swag.Register(swag.Name, &swag.Spec{
		InfoInstanceName: "swagger",
		SwaggerTemplate:  docTemplate,
	})
}

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Post Grid API",
        "description": "Blog post grid with view and sort modes",
        "version": "1.0.0",
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        }
    },
    "basePath": "/",
    "schemes": ["http", "https"],
    "produces": ["application/json"],
    "paths": {
        "/health": {
            "get": {
                "tags": ["Health"],
                "summary": "Health Check",
                "operationId": "healthCheck",
                "responses": {
                    "200": {
                        "description": "Service is healthy",
                        "schema": {
                            "type": "object",
                            "properties": {
                                "status": {"type": "string", "example": "healthy"},
                                "service": {"type": "string", "example": "postgrid"},
                                "poller_active": {"type": "boolean"},
                                "posts": {"type": "integer"},
                                "comments": {"type": "integer"}
                            }
                        }
                    },
                    "503": {"description": "Storage unavailable"}
                }
            }
        },
        "/api/v1/posts": {
            "get": {
                "tags": ["Posts"],
                "summary": "List Posts",
                "description": "All stored posts, newest first",
                "operationId": "getPosts",
                "responses": {
                    "200": {
                        "description": "Posts",
                        "schema": {"$ref": "#/definitions/PostList"}
                    },
                    "500": {"description": "Internal server error"}
                }
            }
        },
        "/api/v1/posts/view": {
            "get": {
                "tags": ["Posts"],
                "summary": "Derived Post View",
                "description": "Posts filtered by a view mode and ordered by a sort mode",
                "operationId": "getPostView",
                "parameters": [
                    {
                        "name": "view",
                        "in": "query",
                        "type": "string",
                        "enum": ["all", "popular", "recent_posts", "recent_comments"],
                        "default": "all"
                    },
                    {
                        "name": "sort",
                        "in": "query",
                        "type": "string",
                        "enum": ["newest", "oldest", "most_comments", "least_comments", "title_asc", "title_desc"],
                        "default": "newest"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Derived posts",
                        "schema": {"$ref": "#/definitions/PostView"}
                    },
                    "400": {"description": "Unknown view or sort mode"},
                    "500": {"description": "Internal server error"}
                }
            }
        },
        "/api/v1/comments/recent": {
            "get": {
                "tags": ["Comments"],
                "summary": "Recent Comments",
                "description": "Most recent comments across all posts, newest first",
                "operationId": "getRecentComments",
                "parameters": [
                    {
                        "name": "limit",
                        "in": "query",
                        "type": "integer",
                        "minimum": 1,
                        "maximum": 100,
                        "default": 20
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Recent comments",
                        "schema": {"$ref": "#/definitions/CommentList"}
                    },
                    "400": {"description": "Invalid limit"},
                    "500": {"description": "Internal server error"}
                }
            }
        },
        "/api/v1/stats": {
            "get": {
                "tags": ["Posts"],
                "summary": "Storage Statistics",
                "operationId": "getStats",
                "responses": {
                    "200": {
                        "description": "Statistics",
                        "schema": {"$ref": "#/definitions/Stats"}
                    }
                }
            }
        },
        "/api/v1/poller/status": {
            "get": {
                "tags": ["Poller"],
                "summary": "Poller Status",
                "operationId": "getPollerStatus",
                "responses": {
                    "200": {
                        "description": "Poller status",
                        "schema": {
                            "type": "object",
                            "properties": {
                                "is_polling": {"type": "boolean"},
                                "status": {"type": "string", "enum": ["active", "idle", "disabled"]},
                                "feeds": {"type": "array", "items": {"type": "string"}},
                                "last_polled": {
                                    "type": "object",
                                    "additionalProperties": {"type": "string", "format": "date-time"}
                                }
                            }
                        }
                    }
                }
            }
        },
        "/api/v1/poller/force-poll": {
            "post": {
                "tags": ["Poller"],
                "summary": "Force Poll",
                "description": "Poll one configured feed now, or every feed when none is given",
                "operationId": "forcePoll",
                "parameters": [
                    {
                        "name": "feed",
                        "in": "query",
                        "type": "string",
                        "format": "uri"
                    }
                ],
                "responses": {
                    "200": {"description": "Poll completed"},
                    "400": {"description": "Invalid feed URL"},
                    "404": {"description": "Feed not configured"},
                    "502": {"description": "Feed could not be fetched"}
                }
            }
        }
    },
    "definitions": {
        "Post": {
            "type": "object",
            "properties": {
                "id": {"type": "integer", "format": "int64"},
                "title": {"type": "string"},
                "created_at": {"type": "string", "format": "date-time"},
                "comment_count": {"type": "integer"},
                "summary": {"type": "string"},
                "link": {"type": "string"},
                "author": {"type": "string"}
            }
        },
        "Comment": {
            "type": "object",
            "properties": {
                "id": {"type": "integer", "format": "int64"},
                "post_id": {"type": "integer", "format": "int64"},
                "created_at": {"type": "string", "format": "date-time"},
                "author": {"type": "string"},
                "body": {"type": "string"}
            }
        },
        "PostList": {
            "type": "object",
            "properties": {
                "posts": {"type": "array", "items": {"$ref": "#/definitions/Post"}},
                "count": {"type": "integer"}
            }
        },
        "PostView": {
            "type": "object",
            "properties": {
                "view": {"type": "string"},
                "sort": {"type": "string"},
                "locale": {"type": "string"},
                "posts": {"type": "array", "items": {"$ref": "#/definitions/Post"}},
                "count": {"type": "integer"}
            }
        },
        "CommentList": {
            "type": "object",
            "properties": {
                "comments": {"type": "array", "items": {"$ref": "#/definitions/Comment"}},
                "count": {"type": "integer"}
            }
        },
        "Stats": {
            "type": "object",
            "properties": {
                "post_count": {"type": "integer"},
                "comment_count": {"type": "integer"},
                "latest_post_at": {"type": "string"},
                "latest_comment_at": {"type": "string"},
                "driver": {"type": "string"}
            }
        }
    },
    "tags": [
        {"name": "Health", "description": "Health check endpoints"},
        {"name": "Posts", "description": "Post listing and derived views"},
        {"name": "Comments", "description": "Comment endpoints"},
        {"name": "Poller", "description": "Background poller endpoints"}
    ]
}`
