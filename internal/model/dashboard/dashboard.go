package dashboard

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/edupal/backend/internal/model/role"
)

// Stat is a headline number card.
type Stat struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Note  string `json:"note,omitempty"`
}

// Item is a row inside a dashboard section.
type Item struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
	Detail   string `json:"detail,omitempty"`
	Progress *int   `json:"progress,omitempty"`
	Badge    string `json:"badge,omitempty"`
	Urgent   bool   `json:"urgent,omitempty"`
}

// Section groups related items under a title.
type Section struct {
	Title string `json:"title"`
	Items []Item `json:"items"`
}

// View is everything the dashboard renders for one role.
type View struct {
	Role        role.Role `json:"role"`
	Headline    string    `json:"headline"`
	Subheadline string    `json:"subheadline"`
	Stats       []Stat    `json:"stats"`
	Sections    []Section `json:"sections"`
}

// Store exposes dashboard views keyed by role.
type Store interface {
	View(r role.Role, userName string) (View, bool)
}

// DefaultUserName is shown when the caller does not name the user.
const DefaultUserName = "Nguyễn Văn A"

// MemoryStore serves the fixed mock views.
type MemoryStore struct {
	builders map[role.Role]func(userName string) View
}

// NewMemoryStore returns a MemoryStore with the seeded views.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		builders: map[role.Role]func(string) View{
			role.Student: studentView,
			role.Teacher: teacherView,
			role.Admin:   adminView,
		},
	}
}

// View builds the dashboard for r. Views are rebuilt per call so callers
// may modify the result freely.
func (s *MemoryStore) View(r role.Role, userName string) (View, bool) {
	build, ok := s.builders[r]
	if !ok {
		return View{}, false
	}
	if userName = strings.TrimSpace(userName); userName == "" {
		userName = DefaultUserName
	}
	return build(userName), true
}

func percent(v int) *int { return &v }

func studentView(userName string) View {
	return View{
		Role:        role.Student,
		Headline:    fmt.Sprintf("Chào mừng trở lại, %s!", userName),
		Subheadline: "Hôm nay bạn muốn học gì? Cùng tiếp tục hành trình học tập nhé!",
		Stats: []Stat{
			{Label: "Khóa học đang học", Value: "5"},
			{Label: "Hoàn thành", Value: "85%"},
			{Label: "Điểm trung bình", Value: "8.7"},
			{Label: "Ngày liên tiếp", Value: "12"},
		},
		Sections: []Section{
			{
				Title: "Khóa học hiện tại",
				Items: []Item{
					{Title: "React.js Cơ bản", Subtitle: "Nguyễn Văn A", Detail: "2h 30p", Progress: percent(75)},
					{Title: "JavaScript Advanced", Subtitle: "Trần Thị B", Detail: "1h 15p", Progress: percent(45)},
					{Title: "Node.js Backend", Subtitle: "Lê Văn C", Detail: "45p", Progress: percent(30)},
				},
			},
			{
				Title: "Bài tập sắp đến hạn",
				Items: []Item{
					{Title: "Bài tập React Components", Subtitle: "React.js Cơ bản", Detail: "2 ngày", Urgent: true},
					{Title: "Project cuối khóa", Subtitle: "JavaScript Advanced", Detail: "1 tuần"},
					{Title: "Quiz API Design", Subtitle: "Node.js Backend", Detail: "3 ngày"},
				},
			},
		},
	}
}

func teacherView(userName string) View {
	return View{
		Role:        role.Teacher,
		Headline:    fmt.Sprintf("Xin chào, %s!", userName),
		Subheadline: "Hôm nay bạn có 3 lớp học và 12 bài tập cần chấm điểm.",
		Stats: []Stat{
			{Label: "Tổng học viên", Value: "157"},
			{Label: "Khóa học đang dạy", Value: "8"},
			{Label: "Bài tập chờ chấm", Value: "23"},
			{Label: "Đánh giá TB", Value: "4.8"},
		},
		Sections: []Section{
			{
				Title: "Lớp học hôm nay",
				Items: []Item{
					{Title: "React.js Cơ bản - Lớp A1", Subtitle: "25 học viên", Detail: "9:00 - 11:00", Badge: "Đang diễn ra"},
					{Title: "JavaScript Advanced - Lớp B2", Subtitle: "30 học viên", Detail: "14:00 - 16:00", Badge: "Sắp tới"},
					{Title: "Node.js Backend - Lớp C3", Subtitle: "20 học viên", Detail: "19:00 - 21:00", Badge: "Sắp tới"},
				},
			},
			{
				Title: "Hiệu suất học viên",
				Items: []Item{
					{Title: "Tỷ lệ hoàn thành bài tập", Detail: "89%", Progress: percent(89)},
					{Title: "Điểm trung bình", Detail: "8.5/10", Progress: percent(85)},
					{Title: "Tỷ lệ tham gia lớp", Detail: "94%", Progress: percent(94)},
				},
			},
		},
	}
}

func adminView(_ string) View {
	return View{
		Role:        role.Admin,
		Headline:    "Dashboard Quản trị",
		Subheadline: "Tổng quan hệ thống EduPal AI",
		Stats: []Stat{
			{Label: "Tổng người dùng", Value: "2,847", Note: "+12% so với tháng trước"},
			{Label: "Khóa học hoạt động", Value: "94", Note: "+5 khóa học mới"},
			{Label: "Doanh thu tháng", Value: "89M", Note: "+18% tăng trưởng"},
			{Label: "Uptime hệ thống", Value: "99.8%", Note: "Hoạt động ổn định"},
		},
		Sections: []Section{
			{
				Title: "Hoạt động gần đây",
				Items: []Item{
					{Title: "Người dùng mới đăng ký", Subtitle: "Nguyễn Văn D", Detail: "2 phút trước", Badge: "user"},
					{Title: "Khóa học được tạo", Subtitle: "Giáo viên A", Detail: "15 phút trước", Badge: "course"},
					{Title: "Thanh toán hoàn tất", Subtitle: "Học viên B", Detail: "30 phút trước", Badge: "payment"},
					{Title: "Cập nhật hệ thống", Subtitle: "System", Detail: "2 giờ trước", Badge: "system"},
				},
			},
			{
				Title: "Hiệu suất hệ thống",
				Items: []Item{
					{Title: "CPU Usage", Detail: "45%", Progress: percent(45)},
					{Title: "Memory Usage", Detail: "67%", Progress: percent(67)},
					{Title: "Storage Usage", Detail: "32%", Progress: percent(32)},
					{Title: "Network I/O", Detail: "89%", Progress: percent(89)},
				},
			},
		},
	}
}
