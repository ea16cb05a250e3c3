package role

// Profile captures the fixed content a role sees in the dashboard and chat.
type Profile struct {
	Role           Role     `json:"role" yaml:"role"`
	Title          string   `json:"title" yaml:"title"`
	AssistantLabel string   `json:"assistantLabel" yaml:"assistantLabel"`
	MenuItems      []string `json:"menuItems" yaml:"menuItems"`
	Suggestions    []string `json:"suggestions" yaml:"suggestions"`
	Responses      []string `json:"-" yaml:"responses"`
}

func (p Profile) clone() Profile {
	p.MenuItems = append([]string(nil), p.MenuItems...)
	p.Suggestions = append([]string(nil), p.Suggestions...)
	p.Responses = append([]string(nil), p.Responses...)
	return p
}

// Seed provides the default profiles for every known role.
func Seed() []Profile {
	return []Profile{
		{
			Role:           Student,
			Title:          "Học viên",
			AssistantLabel: "học viên",
			MenuItems:      []string{"Khóa học của tôi", "Lộ trình học tập", "Bài tập", "Thành tích"},
			Suggestions: []string{
				"Tạo lộ trình học cho tôi",
				"Giải thích khái niệm này",
				"Tôi cần ôn tập gì?",
				"Nhắc nhở deadline bài tập",
			},
			Responses: studentResponses(),
		},
		{
			Role:           Teacher,
			Title:          "Giáo viên",
			AssistantLabel: "giáo viên",
			MenuItems:      []string{"Quản lý khóa học", "Học viên", "Bài kiểm tra", "Thống kê"},
			Suggestions: []string{
				"Tạo bài kiểm tra mới",
				"Phân tích điểm số lớp",
				"Gợi ý phương pháp giảng dạy",
				"Tạo kế hoạch giảng dạy",
			},
			Responses: []string{
				"Tôi có thể giúp bạn tạo bài kiểm tra với các câu hỏi phù hợp với mức độ học viên.",
				"Dựa trên dữ liệu lớp học, tôi thấy một số xu hướng thú vị mà bạn nên lưu ý.",
				"Tôi sẽ gợi ý một số phương pháp giảng dạy hiệu quả cho chủ đề này.",
			},
		},
		{
			Role:           Admin,
			Title:          "Quản trị viên",
			AssistantLabel: "quản trị viên",
			MenuItems:      []string{"Người dùng", "Hệ thống", "Báo cáo", "Cấu hình"},
			Suggestions: []string{
				"Báo cáo hệ thống",
				"Phân tích người dùng",
				"Kiểm tra hiệu suất",
				"Tạo báo cáo tài chính",
			},
			Responses: []string{
				"Tôi sẽ tạo báo cáo chi tiết về hiệu suất hệ thống trong tuần qua.",
				"Dữ liệu cho thấy một số xu hướng tích cực trong việc sử dụng platform.",
				"Tôi khuyên bạn nên chú ý đến những chỉ số này để tối ưu hóa hệ thống.",
			},
		},
	}
}

// SeedFallback is used for any role outside the known set. It answers from
// the student pool but offers only the general-help suggestion.
func SeedFallback() Profile {
	return Profile{
		Title:          "Người dùng",
		AssistantLabel: "người dùng",
		Suggestions:    []string{"Hỗ trợ tổng quát"},
		Responses:      studentResponses(),
	}
}

func studentResponses() []string {
	return []string{
		"Tôi hiểu bạn cần hỗ trợ học tập. Hãy để tôi giúp bạn tìm hiểu chi tiết về vấn đề này.",
		"Đây là một câu hỏi hay! Tôi sẽ tạo một lộ trình học tập phù hợp với bạn.",
		"Dựa trên tiến độ học tập của bạn, tôi khuyên bạn nên tập trung vào những điểm này.",
	}
}
